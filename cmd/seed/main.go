package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/steppeindustrial/corpsite"
	"github.com/steppeindustrial/corpsite/internal/di"
	"github.com/steppeindustrial/corpsite/internal/identity"
)

var moduleBuilder = func(cfg corpsite.Config, opts ...di.Option) (*corpsite.Module, error) {
	return corpsite.New(cfg, opts...)
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		log.Fatalf("corpsite seed: %v", err)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	cfg, err := corpsite.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fs := flag.NewFlagSet("corpsite-seed", flag.ContinueOnError)
	dir := fs.String("dir", cfg.Markdown.SeedDir, "Directory holding <kind>/[<locale>/]<slug>.md files")
	dryRun := fs.Bool("dry-run", false, "Report changes without writing")
	if err := fs.Parse(args); err != nil {
		return err
	}

	module, err := moduleBuilder(cfg, di.WithIDGenerator(identity.Deterministic))
	if err != nil {
		return fmt.Errorf("bootstrap module: %w", err)
	}
	defer module.Close()

	result, err := module.Seed(ctx, os.DirFS(*dir), ".", corpsite.ImportOptions{DryRun: *dryRun})
	if result != nil {
		fmt.Fprintf(out, "created %d, updated %d, failed %d\n", len(result.Created), len(result.Updated), len(result.Errors))
	}
	if err != nil {
		return fmt.Errorf("import %s: %w", *dir, err)
	}
	return nil
}
