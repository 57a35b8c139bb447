package schema

import "github.com/steppeindustrial/corpsite/internal/domain"

// Project lifecycle values accepted by the project_status field.
const (
	ProjectPlanned    = "planned"
	ProjectInProgress = "in_progress"
	ProjectCompleted  = "completed"
)

var (
	titleField    = Field{Name: FieldTitle, Type: TypeString, Required: true, Localized: true, MaxLength: 200, Searchable: true}
	summaryField  = Field{Name: FieldSummary, Type: TypeText, Localized: true, MaxLength: 1000, Searchable: true}
	bodyField     = Field{Name: FieldBody, Type: TypeText, Localized: true, Searchable: true, Markdown: true}
	imageURLField = Field{Name: FieldImageURL, Type: TypeURL, MaxLength: 500}
)

// ServiceDescriptor describes the services collection.
func ServiceDescriptor() Descriptor {
	return Descriptor{
		Kind:            domain.KindService,
		Layout:          LayoutRows,
		DefaultPageSize: 12,
		Fields: []Field{
			titleField,
			summaryField,
			bodyField,
			imageURLField,
			{Name: "icon", Type: TypeString, MaxLength: 64},
		},
	}
}

// ProjectDescriptor describes the project portfolio.
func ProjectDescriptor() Descriptor {
	return Descriptor{
		Kind:            domain.KindProject,
		Layout:          LayoutRows,
		DefaultPageSize: 9,
		Fields: []Field{
			titleField,
			summaryField,
			bodyField,
			imageURLField,
			{Name: "client", Type: TypeString, MaxLength: 200, Searchable: true, Filterable: true},
			{Name: "location", Type: TypeString, Localized: true, MaxLength: 200, Searchable: true},
			{Name: "year", Type: TypeInt, Filterable: true},
			{Name: "project_status", Type: TypeEnum, Enum: []string{ProjectPlanned, ProjectInProgress, ProjectCompleted}, Filterable: true},
			{Name: "started_at", Type: TypeDate},
			{Name: "completed_at", Type: TypeDate},
		},
	}
}

// NewsDescriptor describes news items.
func NewsDescriptor() Descriptor {
	return Descriptor{
		Kind:            domain.KindNews,
		Layout:          LayoutRows,
		DefaultPageSize: 10,
		Fields: []Field{
			titleField,
			summaryField,
			bodyField,
			imageURLField,
			{Name: "source_url", Type: TypeURL, MaxLength: 500},
		},
	}
}

// AboutDescriptor describes company profile sections. Admin payloads carry
// every locale at once as title_en, title_ru and so on.
func AboutDescriptor() Descriptor {
	return Descriptor{
		Kind:            domain.KindAbout,
		Layout:          LayoutSuffixed,
		DefaultPageSize: 50,
		Fields: []Field{
			titleField,
			bodyField,
			imageURLField,
			{Name: "section", Type: TypeEnum, Enum: []string{"history", "mission", "values", "team", "certificates", "partners"}, Filterable: true},
		},
	}
}

// CatalogDescriptor describes catalog products.
func CatalogDescriptor() Descriptor {
	return Descriptor{
		Kind:            domain.KindCatalog,
		Layout:          LayoutRows,
		DefaultPageSize: 24,
		Fields: []Field{
			titleField,
			summaryField,
			bodyField,
			imageURLField,
			{Name: "manufacturer", Type: TypeString, MaxLength: 200, Searchable: true, Filterable: true},
			{Name: "category", Type: TypeString, MaxLength: 120, Searchable: true, Filterable: true},
			{Name: "sku", Type: TypeString, MaxLength: 64, Searchable: true},
			{Name: "document_url", Type: TypeURL, MaxLength: 500},
		},
	}
}

// DefaultRegistry returns the registry of every site collection.
func DefaultRegistry() *Registry {
	registry, err := NewRegistry(
		ServiceDescriptor(),
		ProjectDescriptor(),
		NewsDescriptor(),
		AboutDescriptor(),
		CatalogDescriptor(),
	)
	if err != nil {
		panic(err)
	}
	return registry
}
