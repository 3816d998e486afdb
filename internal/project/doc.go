// Package project defines the timeline data model and the Store that owns it.
//
// The model is a single mutable aggregate:
//
//	Project -> []Track -> []Clip
//
// plus an independently-lifecycled Asset bin. The Store is the only writer;
// every durable mutation follows the fixed order
//
//	mutate -> persist -> notify subscribers -> emit bus event
//
// Readers treat State() results as stale-tolerant snapshots. Clips copy raw
// media URLs out of Assets; deleting an Asset never touches Clips that
// already reference its URL. That is a deliberate product decision, not a
// missing consistency check.
package project
