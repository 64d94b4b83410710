package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"kompanion-sync/internal/api"
	"kompanion-sync/internal/challenge"
	"kompanion-sync/internal/config"
	"kompanion-sync/internal/friends"
	"kompanion-sync/internal/notify"
	"kompanion-sync/internal/progress"
	"kompanion-sync/internal/storage"
)

func main() {
	// Disable structured logging for CLI
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError, // Only show errors
	})))

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Open database (token and cursor storage)
	db, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to initialize database: %v\n", err)
		os.Exit(1)
	}

	// Notifications from store operations are printed after each command
	notifier := notify.NewBuffer(100)
	client := api.NewClient(cfg.APIBaseURL, db, notifier, cfg.HTTPTimeout)
	client.SetSessionExpiredHook(func() {
		fmt.Fprintf(os.Stderr, "Session expired. Sign in again: cli login <email>\n")
	})

	store := challenge.NewStore(client, notifier, db, cfg.PollInterval)

	ctx := context.Background()

	switch command {
	case "login":
		handleLogin(ctx, client)
	case "logout":
		handleLogout(ctx, client, store)
	case "list":
		handleList(ctx, store)
	case "show":
		handleShow(ctx, store)
	case "create":
		handleCreate(ctx, store)
	case "start":
		handleAction(ctx, store.StartChallenge, "start")
	case "cancel":
		handleAction(ctx, store.CancelChallenge, "cancel")
	case "delete":
		handleAction(ctx, store.DeleteChallenge, "delete")
	case "invitations":
		handleInvitations(ctx, store)
	case "accept":
		handleAction(ctx, store.AcceptInvitation, "accept")
	case "decline":
		handleAction(ctx, store.DeclineInvitation, "decline")
	case "leave":
		handleAction(ctx, store.LeaveChallenge, "leave")
	case "invite":
		handleInvite(ctx, store)
	case "friends":
		handleFriends(ctx, client)
	case "poll":
		handlePoll(ctx, store)
	case "events":
		handleEvents(ctx, client)
	case "prefs":
		handlePrefs(db)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Error: Unknown command '%s'\n\n", command)
		printUsage()
		os.Exit(1)
	}

	printNotifications(notifier)
}

func printUsage() {
	fmt.Println(`kompanion-sync CLI - Challenge Management

Usage:
  cli <command> [options]

Commands:
  login <email>          Sign in (password read from KOMPANION_PASSWORD)
  logout                 Sign out and revoke the refresh token
  list                   List your challenges
  show <id>              Show one challenge with progress
  create [flags]         Create a challenge (see cli create -h)
  start <id>             Start a draft challenge
  cancel <id>            Cancel a challenge
  delete <id>            Delete a challenge
  invitations            List pending invitations
  accept <id>            Accept an invitation
  decline <id>           Decline an invitation
  leave <id>             Leave a challenge
  invite <id> <user>...  Invite friends by user ID
  friends <query>        Search friends by name
  poll                   Run one event poll cycle
  events <id>            Show the event stream of one challenge
  prefs [key [value]]    List, read, or set preferences
  help                   Show this help message

Examples:
  cli login alice@example.com
  cli create -name "October century" -type collaborative -distance 100000 -start 2026-10-01 -end 2026-10-31
  cli invite 9f1c2a 1042 1043

Environment Variables Required:
  API_BASE_URL    - Kompanion API base URL
  DATABASE_PATH   - Local database path (default: ./kompanion.db)`)
}

func printNotifications(buffer *notify.Buffer) {
	for _, n := range buffer.Pending() {
		switch n.Level {
		case notify.LevelError:
			fmt.Fprintf(os.Stderr, "✗ %s\n", n.Message)
		default:
			fmt.Printf("✓ %s\n", n.Message)
		}
	}
}

func requireArg(position int, usage string) string {
	if len(os.Args) <= position {
		fmt.Fprintf(os.Stderr, "Usage: %s\n", usage)
		os.Exit(1)
	}
	return os.Args[position]
}

func handleLogin(ctx context.Context, client *api.Client) {
	email := requireArg(2, "cli login <email>")

	password := os.Getenv("KOMPANION_PASSWORD")
	if password == "" {
		fmt.Fprintln(os.Stderr, "Error: KOMPANION_PASSWORD not set")
		os.Exit(1)
	}

	if err := client.Login(ctx, email, password); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("✓ Logged in successfully!")
}

func handleLogout(ctx context.Context, client *api.Client, store *challenge.Store) {
	if err := client.Logout(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	store.Reset()

	fmt.Println("✓ Logged out")
}

func handleList(ctx context.Context, store *challenge.Store) {
	store.FetchChallenges(ctx)

	challenges := store.Challenges()
	if len(challenges) == 0 {
		fmt.Println("No challenges found.")
		return
	}

	fmt.Printf("Found %d challenge(s):\n\n", len(challenges))
	for _, c := range challenges {
		fmt.Printf("%s  %-12s %-13s %s\n", c.ID, c.Status, c.Type, c.Name)
	}
}

func handleShow(ctx context.Context, store *challenge.Store) {
	id := requireArg(2, "cli show <challenge_id>")

	store.FetchChallengeByID(ctx, id)
	c := store.CurrentChallenge()
	if c == nil {
		os.Exit(1)
	}

	fmt.Printf("%s (%s)\n", c.Name, c.ID)
	fmt.Printf("  Type: %s\n", c.Type)
	fmt.Printf("  Status: %s\n", c.Status)
	fmt.Printf("  Window: %s to %s\n", c.StartDate.Format("2006-01-02"), c.EndDate.Format("2006-01-02"))
	if c.Targets.Distance != nil {
		fmt.Printf("  Distance target: %.0f m\n", *c.Targets.Distance)
	}
	if c.Targets.Elevation != nil {
		fmt.Printf("  Elevation target: %.0f m\n", *c.Targets.Elevation)
	}

	switch c.Type {
	case challenge.TypeCollaborative:
		fmt.Printf("  Team progress: %.0f%%\n", progress.TeamProgress(c))
	case challenge.TypeCompetitive:
		if leader := progress.Leader(c); leader != nil {
			fmt.Printf("  Leading: %s %s\n", leader.User.Firstname, leader.User.Lastname)
		}
	}

	active := c.ActiveParticipants()
	if len(active) == 0 {
		return
	}

	fmt.Printf("\n  Participants:\n")
	ranked := active
	if c.Type == challenge.TypeCompetitive {
		ranked = progress.Rank(c, active, c.CompetitiveGoal)
	}
	for i, p := range ranked {
		fmt.Printf("    %d. %s %s: %.0f m distance, %.0f m elevation, %d activities\n",
			i+1, p.User.Firstname, p.User.Lastname, p.TotalDistance, p.TotalElevation, p.ActivityCount)
	}

	if breakdown := progress.Breakdown(c); len(breakdown) > 0 {
		fmt.Printf("\n  Contribution:\n")
		for _, share := range breakdown {
			fmt.Printf("    %s %s: %d%%\n", share.Participant.User.Firstname, share.Participant.User.Lastname, share.Percent)
		}
	}

	var actions []string
	if c.CanStart() {
		actions = append(actions, "start")
	}
	if c.CanCancel() {
		actions = append(actions, "cancel")
	}
	if len(actions) > 0 {
		fmt.Printf("\n  Actions: %s\n", strings.Join(actions, ", "))
	}
}

func handleCreate(ctx context.Context, store *challenge.Store) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	name := fs.String("name", "", "Challenge name (required)")
	description := fs.String("description", "", "Challenge description")
	challengeType := fs.String("type", "collaborative", "Challenge type: collaborative or competitive")
	start := fs.String("start", "", "Start date, YYYY-MM-DD (required)")
	end := fs.String("end", "", "End date, YYYY-MM-DD (required)")
	distance := fs.Float64("distance", 0, "Distance target in meters")
	elevation := fs.Float64("elevation", 0, "Elevation target in meters")
	goal := fs.String("goal", "", "Competitive goal: most, least, or exact")
	fs.Parse(os.Args[2:])

	req := challenge.CreateRequest{
		Name:            *name,
		Description:     *description,
		Type:            challenge.Type(*challengeType),
		CompetitiveGoal: challenge.CompetitiveGoal(*goal),
	}
	if *distance > 0 {
		req.Targets.Distance = distance
	}
	if *elevation > 0 {
		req.Targets.Elevation = elevation
	}

	var err error
	if *start != "" {
		if req.StartDate, err = time.Parse("2006-01-02", *start); err != nil {
			fmt.Fprintf(os.Stderr, "Error: Invalid start date: %s\n", *start)
			os.Exit(1)
		}
	}
	if *end != "" {
		if req.EndDate, err = time.Parse("2006-01-02", *end); err != nil {
			fmt.Fprintf(os.Stderr, "Error: Invalid end date: %s\n", *end)
			os.Exit(1)
		}
	}

	created := store.CreateChallenge(ctx, req)
	if created != nil {
		fmt.Printf("Created challenge %s\n", created.ID)
	}
}

func handleAction(ctx context.Context, action func(context.Context, string), verb string) {
	id := requireArg(2, "cli "+verb+" <challenge_id>")
	action(ctx, id)
}

func handleInvitations(ctx context.Context, store *challenge.Store) {
	store.FetchPendingInvitations(ctx)

	invitations := store.PendingInvitations()
	if len(invitations) == 0 {
		fmt.Println("No pending invitations.")
		return
	}

	fmt.Printf("Found %d pending invitation(s):\n\n", len(invitations))
	for _, inv := range invitations {
		fmt.Printf("  Challenge %s (invited %s)\n", inv.ChallengeID, inv.InvitedAt.Format("2006-01-02"))
	}
}

func handleInvite(ctx context.Context, store *challenge.Store) {
	id := requireArg(2, "cli invite <challenge_id> <user_id>...")

	var userIDs []int64
	for _, arg := range os.Args[3:] {
		userID, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: Invalid user ID: %s\n", arg)
			os.Exit(1)
		}
		userIDs = append(userIDs, userID)
	}

	store.InviteFriends(ctx, id, userIDs)
}

func handleFriends(ctx context.Context, client *api.Client) {
	query := requireArg(2, "cli friends <query>")

	selector := friends.NewSelector(client)
	found, err := selector.Search(ctx, query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	matched := selector.Filter(query)
	if len(found) == 0 || len(matched) == 0 {
		fmt.Println("No friends matched.")
		return
	}

	fmt.Printf("Found %d friend(s):\n\n", len(matched))
	for _, f := range matched {
		fmt.Printf("  %d  %s %s (@%s)\n", f.ID, f.Firstname, f.Lastname, f.Username)
	}
}

func handleEvents(ctx context.Context, client *api.Client) {
	id := requireArg(2, "cli events <challenge_id>")

	batch, err := client.ChallengeEvents(ctx, id, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if len(batch.Events) == 0 {
		fmt.Println("No events.")
		return
	}

	for _, ev := range batch.Events {
		actor := "-"
		if ev.ActorID != nil {
			actor = strconv.FormatInt(*ev.ActorID, 10)
		}
		fmt.Printf("  %s  %-18s actor=%s\n", ev.CreatedAt.Format(time.RFC3339), ev.Type, actor)
	}
}

func handlePrefs(db *storage.DB) {
	known := []string{
		storage.PrefInstallPromptDismissed,
		storage.PrefHapticEnabled,
		storage.PrefStatsPeriod,
	}

	switch {
	case len(os.Args) == 2:
		for _, key := range known {
			value, ok, err := db.GetPreference(key)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			if !ok {
				value = "(unset)"
			}
			fmt.Printf("  %s = %s\n", key, value)
		}
	case len(os.Args) == 3:
		value, ok, err := db.GetPreference(os.Args[2])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if !ok {
			fmt.Println("(unset)")
			return
		}
		fmt.Println(value)
	default:
		if err := db.SetPreference(os.Args[2], os.Args[3]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("✓ %s = %s\n", os.Args[2], os.Args[3])
	}
}

func handlePoll(ctx context.Context, store *challenge.Store) {
	before := store.LastEventTimestamp()
	store.PollEvents(ctx)
	after := store.LastEventTimestamp()

	if after == before {
		fmt.Println("No new events.")
		return
	}
	fmt.Printf("Cursor advanced to %s\n", after)
}
