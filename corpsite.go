package corpsite

import (
	"context"
	"io/fs"
	"net/http"

	"github.com/steppeindustrial/corpsite/internal/cache"
	seedcmd "github.com/steppeindustrial/corpsite/internal/commands/seed"
	"github.com/steppeindustrial/corpsite/internal/contact"
	"github.com/steppeindustrial/corpsite/internal/content"
	"github.com/steppeindustrial/corpsite/internal/di"
	"github.com/steppeindustrial/corpsite/internal/domain"
	"github.com/steppeindustrial/corpsite/internal/markdown"
	"github.com/steppeindustrial/corpsite/internal/permissions"
	"github.com/steppeindustrial/corpsite/internal/problem"
	"github.com/steppeindustrial/corpsite/internal/visibility"
	"github.com/steppeindustrial/corpsite/internal/workflow"
)

// ContentService exports the public and admin read contract.
type ContentService = content.Service

// WorkflowService exports the admin mutation contract.
type WorkflowService = workflow.Service

// ContactService exports the contact intake contract.
type ContactService = contact.Service

type (
	Kind          = domain.Kind
	Status        = domain.Status
	View          = content.View
	ListRequest   = content.ListRequest
	ListResult    = content.ListResult
	AdminItem     = content.AdminItem
	OrderUpdate   = content.OrderUpdate
	Submission    = contact.Submission
	Source        = contact.Source
	Session       = permissions.Session
	Role          = permissions.Role
	ReadContext   = visibility.Context
	Problem       = problem.Problem
	ImportResult  = markdown.ImportResult
	ImportOptions = markdown.ImportOptions
)

const (
	KindService = domain.KindService
	KindProject = domain.KindProject
	KindNews    = domain.KindNews
	KindAbout   = domain.KindAbout
	KindCatalog = domain.KindCatalog

	StatusDraft     = domain.StatusDraft
	StatusPublished = domain.StatusPublished

	RoleNone   = permissions.RoleNone
	RoleEditor = permissions.RoleEditor
	RoleAdmin  = permissions.RoleAdmin
)

// Module is the site runtime façade.
type Module struct {
	container *di.Container
}

// New constructs the site module from cfg and optional container overrides.
func New(cfg Config, opts ...di.Option) (*Module, error) {
	container, err := di.NewContainer(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Module{container: container}, nil
}

// Container exposes the underlying DI container for advanced integrations.
func (m *Module) Container() *di.Container {
	return m.container
}

// Content returns the read service.
func (m *Module) Content() ContentService {
	return m.container.ContentService()
}

// Workflow returns the admin mutation service.
func (m *Module) Workflow() WorkflowService {
	return m.container.WorkflowService()
}

// Contact returns the contact intake service.
func (m *Module) Contact() ContactService {
	return m.container.ContactService()
}

// Cache returns the view cache coordinator, or nil when caching is off.
func (m *Module) Cache() *cache.Coordinator {
	return m.container.Coordinator()
}

// Handler returns the HTTP surface of the site.
func (m *Module) Handler() (http.Handler, error) {
	return m.container.Handler()
}

// Seed imports markdown documents found under root in fsys.
func (m *Module) Seed(ctx context.Context, fsys fs.FS, root string, opts ImportOptions) (*ImportResult, error) {
	result := &ImportResult{}
	msg := seedcmd.ImportCommand{Root: root, DryRun: opts.DryRun, Result: result}
	err := m.container.SeedHandler(fsys).Execute(ctx, msg)
	return result, err
}

// RunMaintenance sweeps expired rate-limit windows and cache entries until
// ctx ends.
func (m *Module) RunMaintenance(ctx context.Context) {
	m.container.RunMaintenance(ctx)
}

// Close releases storage connections opened by the module.
func (m *Module) Close() error {
	return m.container.Close()
}

// WithSession attaches an authenticated session to ctx.
func WithSession(ctx context.Context, session Session) context.Context {
	return permissions.WithSession(ctx, session)
}

// ReadContextFor builds the visibility context of a public read.
func ReadContextFor(session Session, preview bool) ReadContext {
	return visibility.ContextFrom(session, preview)
}

// ProblemFrom classifies err into the error categories of the HTTP surface.
func ProblemFrom(err error) Problem {
	return problem.From(err)
}
