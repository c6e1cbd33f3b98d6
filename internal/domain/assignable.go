package domain

// ApplyMapped moves freshly mapped questions from the unmapped list to the mapped list.
func (a *Assignable) ApplyMapped(res MappingResult) {
	if res.QuizID != a.QuizID {
		return
	}
	moved := make(map[string]struct{}, len(res.Mapped))
	for _, m := range res.Mapped {
		moved[m.QuestionID] = struct{}{}
		if a.LevelID == "" || m.LevelID == a.LevelID {
			a.AlreadyMapped = append(a.AlreadyMapped, m.MappedQuestion())
		}
	}
	kept := a.Unmapped[:0]
	for _, q := range a.Unmapped {
		if _, ok := moved[q.ID]; !ok {
			kept = append(kept, q)
		}
	}
	a.Unmapped = kept
}

// ApplyUnmapped returns restored questions to the unmapped list without reloading the bank.
func (a *Assignable) ApplyUnmapped(res UnmapResult) {
	if res.QuizID != a.QuizID {
		return
	}
	removed := make(map[string]struct{}, len(res.Outcomes))
	for _, o := range res.Outcomes {
		if o.Removed {
			removed[o.MappingID] = struct{}{}
		}
	}
	kept := a.AlreadyMapped[:0]
	for _, m := range a.AlreadyMapped {
		if _, ok := removed[m.MappingID]; !ok {
			kept = append(kept, m)
		}
	}
	a.AlreadyMapped = kept

	present := make(map[string]struct{}, len(a.Unmapped))
	for _, q := range a.Unmapped {
		present[q.ID] = struct{}{}
	}
	for _, q := range res.Restored {
		if q.GroupID != "" && q.GroupID != a.GroupID {
			continue
		}
		if a.LevelID != "" && q.LevelID != a.LevelID {
			continue
		}
		if _, ok := present[q.ID]; ok {
			continue
		}
		present[q.ID] = struct{}{}
		a.Unmapped = append(a.Unmapped, q)
	}
}
