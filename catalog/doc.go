// Package catalog maps content items and their steps to model asset
// identifiers.
//
// An Item is one piece of content (for example an origami model) with a
// fixed number of steps; step n of item "crane" is displayed with the model
// "crane3d<n>". Items come from a static YAML file or a SQLite database,
// both behind the Catalog interface. A Sequence walks an item's steps and
// yields the model identifier of the current step.
package catalog
