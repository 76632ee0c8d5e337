package batch

import "github.com/MimeLyc/structured-doc-translator/internal/document"

// Batch is a run of consecutive translatable blocks sent in one backend call.
// Start is the Seq of the first block and is informational only.
type Batch struct {
	Start  int
	Blocks []document.Block
}

// Seqs returns the Seq of every block in the batch, in order.
func (b Batch) Seqs() []int {
	ret := make([]int, len(b.Blocks))
	for i, block := range b.Blocks {
		ret[i] = block.Seq
	}
	return ret
}

// Partition groups the translatable blocks into runs of at most size blocks.
// Pass-through blocks are skipped. A size <= 0 yields a single batch.
func Partition(blocks []document.Block, size int) []Batch {
	selected := make([]document.Block, 0, len(blocks))
	for _, b := range blocks {
		if b.Translatable() {
			selected = append(selected, b)
		}
	}
	if len(selected) == 0 {
		return nil
	}
	if size <= 0 {
		size = len(selected)
	}

	ret := make([]Batch, 0, (len(selected)+size-1)/size)
	for i := 0; i < len(selected); i += size {
		end := min(i+size, len(selected))
		ret = append(ret, Batch{
			Start:  selected[i].Seq,
			Blocks: selected[i:end:end],
		})
	}
	return ret
}
