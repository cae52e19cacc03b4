// Package l4perception owns Layer 4 (Perception) of the LiDAR data model.
//
// Responsibilities: voxel downsampling and region cropping, RANSAC ground
// plane segmentation, k-d tree radius queries, connected-component
// clustering of obstacle points, and per-cluster bounding boxes.
// Key types: Point, PointSet, Region, PlaneModel, Cluster, BoundingBox.
//
// Every operation is a pure function of its inputs. Subsets handed back to
// callers are copies, never views into the input.
//
// Dependency rule: L4 never imports pipeline, storage or monitor packages.
package l4perception
