// Package migrations embeds the badge and organization schema migrations
// so tests and tooling can apply them without a checkout.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
