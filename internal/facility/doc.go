// Package facility provides the building records that anchor the digital
// twin: floor count, floor height and the model file the views load.
//
// Floor geometry helpers live here because every consumer — the 3D clip
// plane, the 2D floor predicate, the importer's default placement — must
// agree on how a world-space height maps to a floor number. FloorHeight is
// read once from the loaded facility record, never duplicated per view.
//
// The package provides a Repository interface with a SQLite implementation.
package facility
