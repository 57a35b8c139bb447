package seedcmd

import (
	"context"
	"io/fs"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/steppeindustrial/corpsite/internal/commands"
	"github.com/steppeindustrial/corpsite/internal/markdown"
	"github.com/steppeindustrial/corpsite/pkg/interfaces"
)

const importMessageType = "corpsite.seed.import"

// ImportCommand loads seed documents under Root and writes them through the
// publish workflow.
type ImportCommand struct {
	Root   string `json:"root"`
	DryRun bool   `json:"dry_run,omitempty"`
	// Result receives the import summary when set.
	Result *markdown.ImportResult `json:"-"`
}

func (ImportCommand) Type() string { return importMessageType }

func (m ImportCommand) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Root, validation.By(func(value any) error {
			if strings.TrimSpace(value.(string)) == "" {
				return validation.NewError("corpsite.seed.import.root_required", "root is required")
			}
			return nil
		})),
	)
}

// ImportHandler runs ImportCommand against a filesystem.
type ImportHandler struct {
	inner *commands.Handler[ImportCommand]
}

func NewImportHandler(fsys fs.FS, importer *markdown.Importer, defaultLocale string, logger interfaces.Logger, opts ...commands.HandlerOption[ImportCommand]) *ImportHandler {
	exec := func(ctx context.Context, msg ImportCommand) error {
		docs, err := markdown.LoadDocuments(ctx, fsys, msg.Root, defaultLocale)
		if err != nil {
			return err
		}
		result, err := importer.Import(commands.WithSystemSession(ctx), docs, markdown.ImportOptions{DryRun: msg.DryRun})
		if msg.Result != nil && result != nil {
			*msg.Result = *result
		}
		return err
	}
	handlerOpts := append([]commands.HandlerOption[ImportCommand]{
		commands.WithLogger[ImportCommand](logger),
		commands.WithOperation[ImportCommand]("seed.import"),
		commands.WithTimeout[ImportCommand](0),
	}, opts...)
	return &ImportHandler{inner: commands.NewHandler(exec, handlerOpts...)}
}

func (h *ImportHandler) Execute(ctx context.Context, msg ImportCommand) error {
	return h.inner.Execute(ctx, msg)
}
