// Package window generates the tapering windows applied to analysis frames
// before the spectrum transform.
package window
