package pipeline

import "fmt"

// ItemStatus is the outcome of one section.
type ItemStatus string

// Section outcomes.
const (
	ItemPending   ItemStatus = "pending"
	ItemSucceeded ItemStatus = "succeeded"
	ItemFailed    ItemStatus = "failed"
)

// ItemOutcome is what happened to one section.
type ItemOutcome struct {
	Status   ItemStatus
	Artifact string
	Error    string
}

// BatchResult accumulates per-section outcomes for one batch. It always holds
// exactly one outcome per submitted section, in submission order.
type BatchResult struct {
	items        []ItemOutcome
	successOrder []int
}

// NewBatchResult creates a result with n pending sections.
func NewBatchResult(n int) *BatchResult {
	items := make([]ItemOutcome, n)
	for i := range items {
		items[i].Status = ItemPending
	}

	return &BatchResult{items: items}
}

// Len returns the number of sections.
func (r *BatchResult) Len() int {
	return len(r.items)
}

// Succeed records the artifact produced for section index.
func (r *BatchResult) Succeed(index int, artifact string) error {
	if err := r.checkPending(index); err != nil {
		return err
	}

	r.items[index] = ItemOutcome{Status: ItemSucceeded, Artifact: artifact}
	r.successOrder = append(r.successOrder, index)

	return nil
}

// Fail records the error for section index.
func (r *BatchResult) Fail(index int, cause error) error {
	if err := r.checkPending(index); err != nil {
		return err
	}

	r.items[index] = ItemOutcome{Status: ItemFailed, Error: cause.Error()}

	return nil
}

// Outcome returns the outcome of section index.
func (r *BatchResult) Outcome(index int) ItemOutcome {
	return r.items[index]
}

// Artifacts returns the artifacts of succeeded sections in the order they succeeded.
func (r *BatchResult) Artifacts() []string {
	out := make([]string, 0, len(r.successOrder))
	for _, index := range r.successOrder {
		out = append(out, r.items[index].Artifact)
	}

	return out
}

// Succeeded returns the number of succeeded sections.
func (r *BatchResult) Succeeded() int {
	return len(r.successOrder)
}

// Failed returns the number of failed sections.
func (r *BatchResult) Failed() int {
	failed := 0

	for _, item := range r.items {
		if item.Status == ItemFailed {
			failed++
		}
	}

	return failed
}

func (r *BatchResult) checkPending(index int) error {
	if index < 0 || index >= len(r.items) {
		return fmt.Errorf("section index %d out of range [0,%d)", index, len(r.items))
	}

	if r.items[index].Status != ItemPending {
		return fmt.Errorf("section %d already %s", index, r.items[index].Status)
	}

	return nil
}
