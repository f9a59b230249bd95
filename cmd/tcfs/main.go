// Command tcfs locks files in time capsules: encrypt now, decrypt only
// after a caller-chosen instant.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"tcfs/internal/capsule"
	"tcfs/internal/config"
	"tcfs/internal/crypto"
	"tcfs/internal/errs"
)

func main() {
	// Optional .env for TCFS_STORE and friends; absence is fine.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type app struct {
	storeDir string
	backend  string
	verbose  bool
}

func (a *app) setupLogger() {
	slog.SetDefault(slog.New(a.logHandler(os.Stderr)))
}

func (a *app) logHandler(w io.Writer) slog.Handler {
	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
}

func (a *app) newStore() (*capsule.Store, error) {
	provider, err := crypto.NewProvider(a.backend)
	if err != nil {
		return nil, err
	}
	return capsule.NewStore(a.storeDir, provider, slog.Default()), nil
}

func newRootCmd() *cobra.Command {
	a := &app{}

	defaultStore, err := config.DefaultStoreDir()
	if err != nil {
		defaultStore = ".tcfs"
	}

	root := &cobra.Command{
		Use:           "tcfs",
		Short:         "Time capsule file system: time-locked file encryption",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.setupLogger()
		},
	}
	root.PersistentFlags().StringVar(&a.storeDir, "store", defaultStore, "path to the tcfs store directory")
	root.PersistentFlags().StringVar(&a.backend, "crypto-backend", crypto.BackendAESGCM, "crypto backend (aesgcm|mock); mock is insecure and for testing only")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newInitCmd(a),
		newLockCmd(a),
		newUnlockCmd(a),
		newStatusCmd(a),
		newListCmd(a),
	)
	return root
}

func newInitCmd(a *app) *cobra.Command {
	var owner, kdfName string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the tcfs store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kdf, err := crypto.ParseKDF(kdfName)
			if err != nil {
				return err
			}
			cfg, err := config.Init(a.storeDir, owner, capsule.ToolVersion, kdf)
			if err != nil {
				return err
			}
			fmt.Printf("initialized store at %s (owner: %s, kdf: %s)\n", a.storeDir, cfg.Owner, cfg.KDF)
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner recorded in capsule policies")
	cmd.Flags().StringVar(&kdfName, "kdf", "argon2id", "key derivation function (pbkdf2|argon2id)")
	cmd.MarkFlagRequired("owner")
	return cmd
}

func newLockCmd(a *app) *cobra.Command {
	var (
		unlockAt     string
		label        string
		notes        string
		owner        string
		graceSeconds uint32
		keepSource   bool
	)

	cmd := &cobra.Command{
		Use:   "lock <input-file>",
		Short: "Lock a file in a time capsule; the source is shredded afterwards",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.newStore()
			if err != nil {
				return err
			}

			// The store config written by init supplies the KDF and, when
			// --owner is omitted, the owner.
			kdf := crypto.KDFArgon2id
			cfg, err := config.Load(a.storeDir)
			if err != nil {
				if !errs.IsCode(err, errs.FileNotFound) {
					return err
				}
			} else {
				if parsed, perr := crypto.ParseKDF(cfg.KDF); perr == nil {
					kdf = parsed
				}
				if owner == "" {
					owner = cfg.Owner
				}
			}
			if owner == "" {
				return errs.New(errs.InvalidArgument, "no owner: pass --owner or run tcfs init")
			}

			if !keepSource {
				fmt.Fprintln(os.Stderr, "warning: the source file will be destroyed after locking; shredding on modern filesystems is best-effort only")
			}

			result, err := store.Lock(capsule.LockRequest{
				InputPath:    args[0],
				UnlockAt:     unlockAt,
				Owner:        owner,
				Label:        label,
				Notes:        notes,
				GraceSeconds: graceSeconds,
				KDF:          kdf,
				KeepSource:   keepSource,
			})
			if err != nil {
				return err
			}

			for _, w := range result.Warnings {
				fmt.Fprintln(os.Stderr, w)
			}
			fmt.Printf("locked: %s\n", result.CapsulePath)
			fmt.Printf("metadata: %s\n", result.MetadataPath)
			fmt.Printf("unlocks at: %s\n", result.Policy.UnlockAt.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&unlockAt, "unlock-at", "", "unlock time (RFC3339, e.g. 2027-01-02T15:04:05Z)")
	cmd.Flags().StringVar(&label, "label", "", "label for the capsule")
	cmd.Flags().StringVar(&notes, "notes", "", "notes for the capsule")
	cmd.Flags().StringVar(&owner, "owner", "", "owner of the capsule (default: store config)")
	cmd.Flags().Uint32Var(&graceSeconds, "grace-seconds", 0, "clock-skew tolerance; opens the gate this many seconds early")
	cmd.Flags().BoolVar(&keepSource, "keep-source", false, "do not shred the source file after locking")
	cmd.MarkFlagRequired("unlock-at")
	return cmd
}

func newUnlockCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "unlock <name>",
		Short: "Unlock a capsule once its time gate is open",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.newStore()
			if err != nil {
				return err
			}

			result, err := store.Unlock(args[0], output)
			if err != nil {
				return err
			}

			if !result.Unlocked {
				// A closed gate is a normal outcome, not a failure.
				fmt.Printf("not yet unlockable: %s remaining (unlocks at %s)\n",
					formatRemaining(result.Remaining), result.UnlockAt.Format(time.RFC3339))
				return nil
			}

			fmt.Printf("unlocked: %s\n", result.OutputPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output path (default: original filename from metadata)")
	return cmd
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status <name>",
		Short: "Show a capsule's gate state without touching the ciphertext",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.newStore()
			if err != nil {
				return err
			}

			info, err := store.Status(args[0])
			if err != nil {
				return err
			}
			printStatus(info)
			return nil
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the capsules in the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.newStore()
			if err != nil {
				return err
			}

			entries, err := store.List()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("no capsules in store")
				return nil
			}

			for _, entry := range entries {
				fmt.Printf("=== %s ===\n", entry.Name)
				if entry.Err != nil {
					fmt.Printf("warning: %v\n", entry.Err)
					continue
				}
				printStatus(entry.Info)
			}
			return nil
		},
	}
}

func printStatus(info capsule.StatusInfo) {
	fmt.Printf("owner: %s\n", info.Owner)
	if info.Label != "" {
		fmt.Printf("label: %s\n", info.Label)
	}
	if info.Notes != "" {
		fmt.Printf("notes: %s\n", info.Notes)
	}
	fmt.Printf("unlock at: %s\n", info.UnlockAt.Format(time.RFC3339))
	if info.GraceSeconds > 0 {
		fmt.Printf("effective unlock at: %s (grace %ds)\n",
			info.EffectiveUnlock.Format(time.RFC3339), info.GraceSeconds)
	}
	if info.Unlockable {
		fmt.Println("unlockable: yes")
	} else {
		fmt.Printf("unlockable: no (%s remaining)\n", formatRemaining(info.Remaining))
	}
	fmt.Printf("created at: %s\n", info.CreatedAt)
	fmt.Printf("original filename: %s\n", info.OriginalFilename)
	fmt.Printf("algorithm: %s, kdf: %s, tool version: %s\n", info.Algorithm, info.KDF, info.ToolVersion)
}

func formatRemaining(d time.Duration) string {
	secs := int64(d.Seconds())
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%ds", secs)
}
