// Package whsm is the client side of a hardware security module link.
//
// A Client owns one transport to a module and exposes three layers: comm for
// raw request/response exchange, keystore for the module's key cache, and a
// crypto callback that offloads individual operations. Operations the
// module cannot take return cryptocb.ErrUnavailable so the caller falls back
// to local computation.
package whsm
