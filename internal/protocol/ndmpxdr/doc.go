// Package ndmpxdr provides generic XDR (External Data Representation)
// encoding and decoding utilities per RFC 4506, used for the NDMP v3/v4
// wire protocol.
//
// XDR is the standard data serialization format used by Sun RPC protocols;
// NDMP reuses it for its own message framing without riding on ONC RPC's
// program/portmapper machinery. This package holds the protocol-agnostic
// primitives; internal/protocol/ndmp builds the NDMP message header and the
// DATA/MOVER request and reply bodies on top of them.
//
// Key characteristics of XDR:
//   - Big-endian byte order for all multi-byte integers
//   - 4-byte alignment for all data types
//   - Variable-length data is preceded by a 4-byte length
//   - Strings and opaque data are padded to 4-byte boundaries
//
// Reference: RFC 4506 - XDR: External Data Representation Standard
// https://tools.ietf.org/html/rfc4506
package ndmpxdr
