package storage

import (
	"cmp"
	"slices"

	"github.com/nejkit/telegram-drive-bridge/domain"
)

func sortTasks(tasks []*domain.Task) {
	slices.SortFunc(tasks, func(a, b *domain.Task) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}

		return cmp.Compare(a.ID, b.ID)
	})
}
