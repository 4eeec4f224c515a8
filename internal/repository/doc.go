// Package repository holds the storage-neutral errors shared by the remote
// gateway, the local journal and the domain services that translate them.
// Consumer-side interfaces live with the domain packages that use them.
package repository
