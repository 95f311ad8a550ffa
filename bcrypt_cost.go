//go:build !race

package authkit

func passwordHashCost() int {
	return 14
}
