// Package distance implements the distance functions metrigo indexes by.
//
// Cosine distance is defined as 1 - cosine similarity and rejects
// zero-magnitude vectors, for which the angle is undefined. L2 is the
// Euclidean distance (a true metric), which gives the M-tree's
// covering-radius pruning its exactness guarantee.
package distance
