// Package atconfig provides the key/value configuration sources a tracker can be created with.
//
// All sources implement subsystems.ConfigProvider. Values in files are a single flat object;
// non-string values are kept in their JSON form, so "secure": true reads as "true".
package atconfig
