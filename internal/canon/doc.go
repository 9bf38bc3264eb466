// Package canon provides the canonical JSON encoding and the content
// fingerprints used to compare optimized graphs.
//
// Two graphs optimized under different worklist orders have different node
// ids, so they are compared through id-free summaries: the census (one
// "Op:Type" entry per live node) and the snapshot (nodes renumbered in a
// deterministic walk order). Both are encoded with MarshalCanonical and
// hashed with a domain prefix, so equal fingerprints mean equal graphs up
// to renumbering.
//
// Canonical JSON rules:
//   - object keys sorted by UTF-16 code units
//   - no HTML escaping
//   - strings NFC normalized
//   - no floats and no null
package canon
