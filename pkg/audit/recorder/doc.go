// Package recorder writes audit events asynchronously so that deploys and
// evaluations never block on storage.
package recorder
