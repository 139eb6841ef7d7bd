package proficiency

// Pool recomputes a parent record from its children by conjugate pooling:
// each child's evidence above the prior is summed onto a single prior. The
// pooled mean is kept within the range of the children's means; when the
// shared prior would push it outside, it is projected onto the nearest
// bound at constant mass.
//
// Pool is pure. A parent without children is the prior.
func Pool(key Key, children []Record, prior Prior) Record {
	rec := NewRecord(key, prior)
	if len(children) == 0 {
		return rec
	}

	lo, hi := 1.0, 0.0
	for _, c := range children {
		if c.Alpha > prior.Alpha {
			rec.Alpha += c.Alpha - prior.Alpha
		}
		if c.Beta > prior.Beta {
			rec.Beta += c.Beta - prior.Beta
		}
		rec.SampleCount += c.SampleCount
		if c.LastUpdated.After(rec.LastUpdated) {
			rec.LastUpdated = c.LastUpdated
		}
		m := c.Alpha / (c.Alpha + c.Beta)
		lo = min(lo, m)
		hi = max(hi, m)
	}

	total := rec.Alpha + rec.Beta
	mean := rec.Alpha / total
	switch {
	case mean < lo:
		rec.Alpha = lo * total
		rec.Beta = total - rec.Alpha
	case mean > hi:
		rec.Alpha = hi * total
		rec.Beta = total - rec.Alpha
	}
	rec.refresh(prior)
	return rec
}
