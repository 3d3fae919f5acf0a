package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/sqldeck/sqldeck/internal/errs"
	"github.com/sqldeck/sqldeck/internal/snapshot"
	"github.com/sqldeck/sqldeck/internal/snapshot/minio"
)

// storeFlags configure the object storage backend snapshots are written to.
// Credentials fall back to SQLDECK_MINIO_* environment variables so they
// never have to appear on the command line.
type storeFlags struct {
	endpoint  string
	accessKey string
	secretKey string
	bucket    string
	useSSL    bool
}

func newSnapshotCmd(flags *connFlags) *cobra.Command {
	store := &storeFlags{}

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Export and fetch catalog snapshots",
		Long: `Capture the session's catalog view — product, dialect summary, table
names — as a YAML document in object storage, or fetch one back.`,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&store.endpoint, "endpoint", "", "object storage endpoint, e.g. localhost:9000 (env SQLDECK_MINIO_ENDPOINT)")
	pf.StringVar(&store.accessKey, "access-key", "", "object storage access key (env SQLDECK_MINIO_ACCESS_KEY)")
	pf.StringVar(&store.secretKey, "secret-key", "", "object storage secret key (env SQLDECK_MINIO_SECRET_KEY)")
	pf.StringVar(&store.bucket, "bucket", "sqldeck-snapshots", "bucket snapshots are stored in")
	pf.BoolVar(&store.useSSL, "ssl", false, "use TLS for the object storage connection")

	cmd.AddCommand(newSnapshotExportCmd(flags, store))
	cmd.AddCommand(newSnapshotShowCmd(store))

	return cmd
}

func newSnapshotExportCmd(flags *connFlags, store *storeFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Capture the current catalog and upload it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotExport(cmd, flags, store)
		},
	}
}

func runSnapshotExport(cmd *cobra.Command, flags *connFlags, store *storeFlags) error {
	sess, err := buildSession(flags)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx := context.Background()
	if err := sess.Connect(ctx); err != nil {
		return err
	}

	st, err := openStore(ctx, store)
	if err != nil {
		return err
	}
	defer st.Close()

	key, err := snapshot.Export(ctx, sess, st, store.bucket)
	if err != nil {
		return err
	}
	cmd.Printf("Exported snapshot to %s/%s\n", store.bucket, key)
	return nil
}

func newSnapshotShowCmd(store *storeFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show <key>",
		Short: "Fetch a stored snapshot and print it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotShow(cmd, store, args[0])
		},
	}
}

func runSnapshotShow(cmd *cobra.Command, store *storeFlags, key string) error {
	ctx := context.Background()

	st, err := openStore(ctx, store)
	if err != nil {
		return err
	}
	defer st.Close()

	data, err := st.Get(ctx, store.bucket, key)
	if err != nil {
		return err
	}

	// Round-trip through Unmarshal so a corrupt object fails loudly instead
	// of printing garbage.
	if _, err := snapshot.Unmarshal(data); err != nil {
		return err
	}
	cmd.Print(string(data))
	return nil
}

func openStore(ctx context.Context, store *storeFlags) (*minio.Store, error) {
	endpoint := fallbackEnv(store.endpoint, "SQLDECK_MINIO_ENDPOINT")
	accessKey := fallbackEnv(store.accessKey, "SQLDECK_MINIO_ACCESS_KEY")
	secretKey := fallbackEnv(store.secretKey, "SQLDECK_MINIO_SECRET_KEY")

	if endpoint == "" {
		return nil, errs.New(errs.ErrKindInvalidInput,
			"no object storage endpoint: pass --endpoint or set SQLDECK_MINIO_ENDPOINT")
	}

	cfg := minio.DefaultConfig(endpoint, accessKey, secretKey)
	cfg.UseSSL = store.useSSL
	return minio.New(ctx, cfg)
}

func fallbackEnv(value, envKey string) string {
	if value != "" {
		return value
	}
	return os.Getenv(envKey)
}
