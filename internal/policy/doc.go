// Package policy decides which discovered links a route is allowed to follow.
//
// Two independent checks are provided:
//   - Domain: compares a candidate URL's host against the route's seed host
//     using one of the strict, same-sld, same-tld or any policies
//   - LinkFilter: applies the route's whitelist gate and blacklist veto,
//     both written as case-insensitive, unanchored regular expressions
//
// Both checks are pure and safe for concurrent use.
package policy
