// Package model defines the data passed between the pipeline, the report
// writers and the database.
//
// A RankReport describes one run over one corpus: the graph summary, the
// damping factor and one MethodResult per estimator. Ranks are stored as a
// slice ordered by page name so reports and stored runs are stable.
package model
