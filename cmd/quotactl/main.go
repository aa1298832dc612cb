package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/princekumarofficial/course-media-service/internal/config"
	"github.com/princekumarofficial/course-media-service/internal/quota"
	"github.com/princekumarofficial/course-media-service/internal/storage/postgres"
	quotatypes "github.com/princekumarofficial/course-media-service/internal/types/quota"
	"github.com/princekumarofficial/course-media-service/internal/utils/jwt"
	"github.com/spf13/cobra"
)

// manager is the subset of the quota ledger the CLI drives
type manager interface {
	SetQuota(ctx context.Context, tenantID string, class quotatypes.Class, totalBytes int64, expiresAt time.Time) error
	Usage(ctx context.Context, tenantID string) ([]quotatypes.Record, error)
}

type app struct {
	configPath string
	cfg        *config.Config

	// openLedger connects to the quota store; returns a close func
	openLedger func(cfg *config.Config) (manager, func() error, error)
}

func openPostgresLedger(cfg *config.Config) (manager, func() error, error) {
	pg, err := postgres.NewPostgres(cfg)
	if err != nil {
		return nil, nil, err
	}
	return quota.NewLedger(pg), pg.Close, nil
}

func (a *app) loadConfig() error {
	if a.cfg != nil {
		return nil
	}
	path := a.configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		return fmt.Errorf("config path must be provided with --config or CONFIG_PATH")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	a.cfg = cfg
	return nil
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "quotactl",
		Short:         "Manage per-tenant media storage quotas",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to config file")

	root.AddCommand(newSetCmd(a))
	root.AddCommand(newShowCmd(a))
	root.AddCommand(newTokenCmd(a))
	return root
}

// parseBytes accepts a plain byte count or a KiB/MiB/GiB/TiB suffix
func parseBytes(s string) (int64, error) {
	units := []struct {
		suffix string
		mult   int64
	}{
		{"TIB", 1 << 40},
		{"GIB", 1 << 30},
		{"MIB", 1 << 20},
		{"KIB", 1 << 10},
	}

	upper := strings.ToUpper(strings.TrimSpace(s))
	mult := int64(1)
	for _, u := range units {
		if strings.HasSuffix(upper, u.suffix) {
			upper = strings.TrimSpace(strings.TrimSuffix(upper, u.suffix))
			mult = u.mult
			break
		}
	}

	n, err := strconv.ParseInt(upper, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return n * mult, nil
}

func newSetCmd(a *app) *cobra.Command {
	var expiresIn time.Duration
	var expiresAt string

	cmd := &cobra.Command{
		Use:   "set <tenant> <class> <size>",
		Short: "Create or replace a tenant allowance",
		Long:  "Create or replace the VIDEO, DOCUMENT or TOTAL allowance of a tenant. Used bytes are kept.",
		Example: `  quotactl set tenant-a VIDEO 50GiB --expires-in 8760h
  quotactl set tenant-a TOTAL 107374182400 --expires-at 2027-01-01T00:00:00Z`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID := args[0]
			class, err := quotatypes.ParseClass(args[1])
			if err != nil {
				return err
			}
			total, err := parseBytes(args[2])
			if err != nil {
				return err
			}

			expires := time.Now().Add(expiresIn).UTC()
			if expiresAt != "" {
				expires, err = time.Parse(time.RFC3339, expiresAt)
				if err != nil {
					return fmt.Errorf("invalid --expires-at: %w", err)
				}
			}

			if err := a.loadConfig(); err != nil {
				return err
			}
			l, closeFn, err := a.openLedger(a.cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			if err := l.SetQuota(ctx, tenantID, class, total, expires); err != nil {
				return fmt.Errorf("failed to set quota: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Set %s %s to %d bytes, expires %s\n",
				tenantID, class, total, expires.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().DurationVar(&expiresIn, "expires-in", 365*24*time.Hour, "Allowance lifetime from now")
	cmd.Flags().StringVar(&expiresAt, "expires-at", "", "Absolute expiry (RFC3339), overrides --expires-in")
	return cmd
}

func printUsage(w io.Writer, records []quotatypes.Record, now time.Time) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CLASS\tTOTAL\tUSED\tAVAILABLE\tEXPIRES")
	for _, r := range records {
		expires := r.ExpiresAt.Format(time.RFC3339)
		if r.Expired(now) {
			expires += " (expired)"
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\n", r.Class, r.TotalBytes, r.UsedBytes, r.Available(), expires)
	}
	tw.Flush()
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <tenant>",
		Short: "Show a tenant's allowances and usage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadConfig(); err != nil {
				return err
			}
			l, closeFn, err := a.openLedger(a.cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			records, err := l.Usage(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to read quota: %w", err)
			}
			if len(records) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No quotas configured for %s\n", args[0])
				return nil
			}

			printUsage(cmd.OutOrStdout(), records, time.Now())
			return nil
		},
	}
}

func newTokenCmd(a *app) *cobra.Command {
	var role string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token <tenant> <user>",
		Short: "Mint a bearer token signed with the configured secret",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if role != jwt.RoleInstructor && role != jwt.RoleAdmin {
				return fmt.Errorf("role must be %q or %q", jwt.RoleInstructor, jwt.RoleAdmin)
			}
			if err := a.loadConfig(); err != nil {
				return err
			}

			token, err := jwt.CreateToken(args[0], args[1], role, a.cfg.JWTSecret, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", jwt.RoleInstructor, "Token role")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	return cmd
}

func main() {
	a := &app{openLedger: openPostgresLedger}
	if err := newRootCmd(a).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
