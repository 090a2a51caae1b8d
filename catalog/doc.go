// Package catalog holds the static model table: the models listed to the host and,
// per model id, whether long text blocks are marked for prompt caching.
// The default table is embedded from models.yaml.
package catalog
