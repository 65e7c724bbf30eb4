// Package domain defines the data models, error kinds and contracts shared
// across umbra. It contains plain types (wire/state) and interfaces only; the
// types and interfaces subpackages are re-exported here through aliases.
package domain
