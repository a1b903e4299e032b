// Package compute provides the dense linear-algebra backend.
//
// The network vector field needs one matrix-vector product per evaluation and
// the batched tangent map needs one matrix-matrix product. Both fan out over
// row chunks when the matrix is large enough:
//
//	backend := compute.GetBackend()
//	backend.MatVecMul(w, phi, out)
//
// Ensemble runs that already occupy every core can install
// [NewSerialBackend] to avoid nested fan-out.
package compute
