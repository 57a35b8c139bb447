// Package markdown renders Markdown fields to HTML and imports seed content
// from Markdown files with YAML front matter.
package markdown
