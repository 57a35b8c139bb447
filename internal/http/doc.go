// Package http exposes the site API on a net/http ServeMux.
//
// Public routes mount under /api:
//   - Content reads: GET /api/{kind}, GET /api/{kind}/{slug}
//   - Contact intake: POST /api/contact
//
// Admin routes mount under /admin/api and require an editor or admin session:
//   - Entries: /{kind}, /{kind}/{id}, /{kind}/{id}/status, /{kind}/reorder
//   - Contact requests: /contact-requests
//
// Sessions come from bearer tokens verified by SessionMiddleware.
package http
