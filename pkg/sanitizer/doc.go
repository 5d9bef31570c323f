// Package sanitizer provides input normalization for booking data.
//
// All normalization functions are idempotent - applying them multiple times
// produces the same result. Invalid input yields empty strings rather than
// errors; validation decides whether empty is acceptable.
//
// Normalization includes:
//   - Phone numbers: convert to E.164 format (+[country][number])
//   - URLs: enforce HTTPS, lowercase domains, preserve paths
//   - Strings: collapse whitespace, trim leading/trailing spaces
package sanitizer
