package compute

import "github.com/san-kum/chaosnet/internal/dynamo"

// Backend performs the dense products the network field and tangent map need.
// Implementations write into dst and must not retain any argument.
type Backend interface {
	Name() string
	MatVecMul(mat *dynamo.Matrix, vec, dst []float64)
	MatMul(a, b, dst *dynamo.Matrix)
}

var activeBackend Backend = NewCPUBackend()

func SetBackend(b Backend) {
	activeBackend = b
}

func GetBackend() Backend {
	return activeBackend
}
