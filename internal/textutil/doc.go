// Package textutil provides string helpers for filesystem-safe names.
package textutil
