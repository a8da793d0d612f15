package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/journalkit/mnemo/internal/config"
	"github.com/journalkit/mnemo/internal/engine"
	"github.com/journalkit/mnemo/internal/store"
)

var (
	ownerFlag     string
	recallLimit   int
	recallType    string
	formatLang    string
	snapshotID    string
	extractSource string
)

func init() {
	for _, c := range []*cobra.Command{extractCmd, recallCmd, formatCmd, snapshotCmd, statsCmd} {
		c.Flags().StringVarP(&ownerFlag, "owner", "o", "", "Owner ID (defaults to $MNEMO_OWNER)")
	}

	extractCmd.Flags().StringVar(&extractSource, "source", store.SourceConversation, "Source type to record")
	recallCmd.Flags().IntVarP(&recallLimit, "limit", "n", 5, "Maximum number of memories")
	recallCmd.Flags().StringVar(&recallType, "type", engine.ConversationCurrent, "Conversation type: current or review")
	formatCmd.Flags().StringVarP(&formatLang, "lang", "l", "en", "Output language: en or zh")
	snapshotCmd.Flags().StringVar(&snapshotID, "session", "", "Session ID to tag the snapshot with")
}

// openEngine opens the database and wraps it in an engine for CLI commands.
func openEngine() (*engine.Engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return nil, err
		}
	}
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	return engine.New(db, nil, engine.DefaultPolicy()), nil
}

func resolveOwner() (string, error) {
	if ownerFlag != "" {
		return ownerFlag, nil
	}
	if o := os.Getenv("MNEMO_OWNER"); o != "" {
		return o, nil
	}
	return "", fmt.Errorf("owner required: pass --owner or set MNEMO_OWNER")
}

// --- extract command ---

var extractCmd = &cobra.Command{
	Use:   "extract [text]",
	Short: "Extract and store memories from text",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runExtract,
}

func runExtract(cmd *cobra.Command, args []string) error {
	owner, err := resolveOwner()
	if err != nil {
		return err
	}
	eng, err := openEngine()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer eng.DB().Close()

	text := strings.Join(args, " ")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	records, err := eng.ExtractAndStore(ctx, owner, text, extractSource, time.Now())
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	if len(records) == 0 {
		fmt.Println("No memories extracted.")
		return nil
	}

	for _, r := range records {
		fmt.Printf("  [%s] %s (confidence %.2f, mentions %d)\n", r.Category, r.Value, r.Confidence, r.MentionCount)
	}
	fmt.Printf("%d memories stored.\n", len(records))
	return nil
}

// --- recall command ---

var recallCmd = &cobra.Command{
	Use:   "recall [context]",
	Short: "Retrieve memories relevant to a conversation context",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRecall,
}

func runRecall(cmd *cobra.Command, args []string) error {
	owner, err := resolveOwner()
	if err != nil {
		return err
	}
	eng, err := openEngine()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer eng.DB().Close()

	convContext := strings.Join(args, " ")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	records, err := eng.RelevantMemories(ctx, owner, convContext, time.Now(), recallLimit, recallType)
	if err != nil {
		return fmt.Errorf("recall: %w", err)
	}
	if len(records) == 0 {
		fmt.Println("No relevant memories.")
		return nil
	}

	for i, r := range records {
		fmt.Printf("%d. [%s] %s (confidence %.2f)\n", i+1, r.Category, r.Value, r.Confidence)
	}
	return nil
}

// --- format command ---

var formatCmd = &cobra.Command{
	Use:   "format [context]",
	Short: "Render relevant memories as a prompt fragment",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runFormat,
}

func runFormat(cmd *cobra.Command, args []string) error {
	owner, err := resolveOwner()
	if err != nil {
		return err
	}
	eng, err := openEngine()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer eng.DB().Close()

	convContext := strings.Join(args, " ")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	records, err := eng.RelevantMemories(ctx, owner, convContext, time.Now(), 5, engine.ConversationCurrent)
	if err != nil {
		return fmt.Errorf("recall: %w", err)
	}

	fragment := eng.FormatForPrompt(records, formatLang, convContext)
	if fragment == "" {
		fmt.Println("Nothing to inject for this context.")
		return nil
	}
	fmt.Print(fragment)
	return nil
}

// --- snapshot command ---

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Capture the owner's active memories into a snapshot",
	RunE:  runSnapshot,
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	owner, err := resolveOwner()
	if err != nil {
		return err
	}
	eng, err := openEngine()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer eng.DB().Close()

	sessionID := snapshotID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	snap, err := eng.CreateSnapshot(ctx, owner, sessionID, time.Now())
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}

	fmt.Printf("Snapshot %s created (%d memories, session %s)\n", snap.ID, len(snap.MemoryContext), sessionID)
	return nil
}

// --- stats command ---

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show memory statistics for an owner",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	owner, err := resolveOwner()
	if err != nil {
		return err
	}
	eng, err := openEngine()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer eng.DB().Close()

	stats, err := eng.Stats(owner, time.Now())
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}

	fmt.Printf("Total memories:    %d\n", stats.TotalMemories)
	fmt.Printf("High confidence:   %d\n", stats.HighConfidence)
	fmt.Printf("Updated this week: %d\n", stats.RecentMemories)

	if len(stats.ByCategory) > 0 {
		fmt.Println("By category:")
		categories := make([]string, 0, len(stats.ByCategory))
		for c := range stats.ByCategory {
			categories = append(categories, c)
		}
		sort.Strings(categories)
		for _, c := range categories {
			fmt.Printf("  %-15s %d\n", c, stats.ByCategory[c])
		}
	}
	return nil
}
