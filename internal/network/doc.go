// Package network implements the randomly connected rate network
//
//	dx_i/dt = -x_i + sum_j W_ij tanh(g*sigma*x_j)
//
// where W is an N x N Gaussian matrix with zero diagonal and entry variance
// sigma^2/N. Randomness comes only from an explicit [Source]; nothing here
// touches a global generator.
//
// A coupling sweep shares one base draw:
//
//	base, _ := network.BaseMatrix(network.NewSource(seed), 200)
//	models, _ := network.Sweep(base, []float64{1.05, 1.2, 1.5}, 1.0)
package network
