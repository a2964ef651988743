// Package tarantula provides a depth-bounded, politeness-respecting web
// crawler. Given a seed URL and run parameters it discovers and fetches
// linked pages up to a configured depth, extracts further links, and emits
// one result per visited page to a configured callback, while honoring
// robots.txt rules and per-host rate limits.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency or concern (e.g., crawl/, robotstxt/,
// goquery/, sqlite/).
package tarantula
