// Package pose owns the per-frame body-joint data handed over by the pose
// oracle.
//
// Responsibilities: the enumerated joint set, joint positions in
// normalised frame space, the per-frame snapshot, the explicit
// detected / not-detected distinction, and the newline-delimited JSON
// wire format the oracle speaks.
// Key types: Joint, Position, Snapshot, Detection.
//
// Nothing here keeps state across frames.
package pose
