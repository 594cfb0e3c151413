/*
Package urlscheme computes the bit-exact external URL and routing-label
scheme the reverse proxy expects for a workspace, bit-exact because the
proxy itself lives outside this module: this package is the sole boundary
contract describing what labels and paths it must interpret.

# Usage

	urls := urlscheme.URLs("cradle.example.com", id)
	labels := urlscheme.BuildLabels("cradle.example.com", id)

# See Also

  - pkg/runtime, the only caller of BuildLabels at workspace creation time
*/
package urlscheme
