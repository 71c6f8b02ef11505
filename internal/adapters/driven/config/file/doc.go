// Package file provides the TOML-file configuration store.
//
// Values are read from a TOML file and flattened to dot-notation keys.
// Any key can be overridden from the environment as COURSEDEX_<KEY>, with
// dots replaced by underscores (embedding.api_key -> COURSEDEX_EMBEDDING_API_KEY).
package file
