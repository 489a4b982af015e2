package merkle

import (
	"fmt"
	"testing"
)

// BenchmarkHistoryTreeBuild benchmarks tree construction with various history sizes
func BenchmarkHistoryTreeBuild(b *testing.B) {
	sizes := []int{10, 100, 1000, 10000}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("Entries_%d", size), func(b *testing.B) {
			roots := randomHistory(size)
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				_, _ = BuildHistoryTree(roots)
			}
		})
	}
}

// BenchmarkHistoryProofGeneration benchmarks proof generation
func BenchmarkHistoryProofGeneration(b *testing.B) {
	sizes := []int{10, 100, 1000}

	for _, size := range sizes {
		roots := randomHistory(size)
		tree, _ := BuildHistoryTree(roots)

		b.Run(fmt.Sprintf("Entries_%d", size), func(b *testing.B) {
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				idx := i % size
				_, _ = tree.GenerateProof(uint64(idx), roots[idx])
			}
		})
	}
}
