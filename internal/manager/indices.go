package manager

import (
	"fmt"

	"riffle/internal/archive"
	"riffle/internal/display"
)

// window is the deque of open archives presented as one continuous page
// sequence. Only the manager goroutine touches it, so cursors derived from
// it stay valid until the next structural change.
type window struct {
	archives []*archive.Archive
}

func (w *window) len() int { return len(w.archives) }

func (w *window) archiveAt(i int) *archive.Archive { return w.archives[i] }

func (w *window) archive(pi pageIndices) *archive.Archive { return w.archives[pi.a] }

func (w *window) pushBack(a *archive.Archive) { w.archives = append(w.archives, a) }

func (w *window) pushFront(a *archive.Archive) {
	w.archives = append(w.archives, nil)
	copy(w.archives[1:], w.archives)
	w.archives[0] = a
}

func (w *window) popFront() *archive.Archive {
	a := w.archives[0]
	copy(w.archives, w.archives[1:])
	w.archives[len(w.archives)-1] = nil
	w.archives = w.archives[:len(w.archives)-1]
	return a
}

func (w *window) popBack() *archive.Archive {
	a := w.archives[len(w.archives)-1]
	w.archives[len(w.archives)-1] = nil
	w.archives = w.archives[:len(w.archives)-1]
	return a
}

// pageIndices addresses one navigable slot: a page of an open archive, or
// an archive with no usable pages at all, which still occupies exactly one
// slot so broken archives remain visible while paging past them. p is -1
// for the empty case.
type pageIndices struct {
	a int
	p int
}

func (pi pageIndices) empty() bool { return pi.p < 0 }

func (pi pageIndices) String() string {
	if pi.empty() {
		return fmt.Sprintf("(%d, empty)", pi.a)
	}
	return fmt.Sprintf("(%d, %d)", pi.a, pi.p)
}

// comparePages orders slots archive-first. A real page and an empty slot
// can never point at the same archive; seeing both means a cursor survived
// a window change it should not have.
func comparePages(x, y pageIndices) int {
	if x.a != y.a {
		if x.a < y.a {
			return -1
		}
		return 1
	}
	if x.empty() != y.empty() {
		panic(fmt.Sprintf("compared %v and %v against the same archive", x, y))
	}
	switch {
	case x.p < y.p:
		return -1
	case x.p > y.p:
		return 1
	default:
		return 0
	}
}

// landing is the slot to land on when entering archive a from outside: its
// first page, or the empty slot.
func (w *window) landing(a int) pageIndices {
	if w.archives[a].PageCount() == 0 {
		return pageIndices{a: a, p: -1}
	}
	return pageIndices{a: a, p: 0}
}

func (w *window) first() pageIndices {
	return w.landing(0)
}

func (w *window) last() pageIndices {
	a := len(w.archives) - 1
	if pc := w.archives[a].PageCount(); pc > 0 {
		return pageIndices{a: a, p: pc - 1}
	}
	return pageIndices{a: a, p: -1}
}

// add walks n pages forward from pi, crossing archive boundaries and
// counting an archive with no pages as exactly one slot. Reports false when
// the walk runs off the end of the open window.
func (w *window) add(pi pageIndices, n int) (pageIndices, bool) {
	p := pi.p
	if p < 0 {
		p = 0
	}
	p += n

	for a := pi.a; a < len(w.archives); a++ {
		pc := w.archives[a].PageCount()
		switch {
		case pc == 0:
			if p == 0 {
				return pageIndices{a: a, p: -1}, true
			}
			p--
		case p < pc:
			return pageIndices{a: a, p: p}, true
		default:
			p -= pc
		}
	}
	return pageIndices{}, false
}

// sub is add's mirror, walking n pages backward. Reports false when the
// walk runs off the start of the open window.
func (w *window) sub(pi pageIndices, n int) (pageIndices, bool) {
	p := pi.p
	if p < 0 {
		p = 0
	}

	if p >= n {
		if w.archives[pi.a].PageCount() == 0 {
			return pageIndices{a: pi.a, p: -1}, true
		}
		return pageIndices{a: pi.a, p: p - n}, true
	}

	for a := pi.a - 1; a >= 0; a-- {
		pc := w.archives[a].PageCount()
		p += pc
		if pc == 0 {
			p++
		}
		if p >= n {
			if pc == 0 {
				return pageIndices{a: a, p: -1}, true
			}
			return pageIndices{a: a, p: p - n}, true
		}
	}
	return pageIndices{}, false
}

// tryMovePages applies one navigation step to a cursor. Absolute moves
// take a one-indexed page, clamp within the cursor's archive and never
// fail; relative moves report false when they run off the open window,
// which callers treat as "open another archive", not as an error.
func (w *window) tryMovePages(pi pageIndices, d display.Direction, n int) (pageIndices, bool) {
	if d == display.Absolute {
		pc := w.archives[pi.a].PageCount()
		if pc == 0 {
			return pi, true
		}
		if n > 0 {
			n--
		}
		if n > pc-1 {
			n = pc - 1
		}
		return pageIndices{a: pi.a, p: n}, true
	}
	if d == display.Backwards {
		return w.sub(pi, n)
	}
	return w.add(pi, n)
}

// moveClampedInArchive moves like tryMovePages but stops at the cursor's
// own archive boundary instead of failing or crossing it.
func (w *window) moveClampedInArchive(pi pageIndices, d display.Direction, n int) pageIndices {
	if out, ok := w.tryMovePages(pi, d, n); ok && out.a == pi.a {
		return out
	}

	pc := w.archives[pi.a].PageCount()
	if pc == 0 {
		return pageIndices{a: pi.a, p: -1}
	}
	if d == display.Forwards {
		return pageIndices{a: pi.a, p: pc - 1}
	}
	return pageIndices{a: pi.a, p: 0}
}

// moveClamped moves like tryMovePages but stops at the first or last slot
// of the whole open window instead of failing.
func (w *window) moveClamped(pi pageIndices, d display.Direction, n int) pageIndices {
	if out, ok := w.tryMovePages(pi, d, n); ok {
		return out
	}
	if d == display.Forwards {
		return w.last()
	}
	return w.first()
}

// wrappingRange lists the slots a preload window covers: the current slot
// and everything ahead of it first, nearest first, then the slots behind
// it from the window's lower bound walking up to just before the current
// slot. behind and ahead are non-negative page counts and both bounds
// clamp to the open window.
func (w *window) wrappingRange(c pageIndices, behind, ahead int) []pageIndices {
	start := w.moveClamped(c, display.Backwards, behind)
	end := w.moveClamped(c, display.Forwards, ahead)
	return w.wrapBetween(c, start, end)
}

// wrappingRangeInArchive is wrappingRange bounded by the current archive,
// for when crossing archives is disabled.
func (w *window) wrappingRangeInArchive(c pageIndices, behind, ahead int) []pageIndices {
	start := w.moveClampedInArchive(c, display.Backwards, behind)
	end := w.moveClampedInArchive(c, display.Forwards, ahead)
	return w.wrapBetween(c, start, end)
}

func (w *window) wrapBetween(c, start, end pageIndices) []pageIndices {
	out := []pageIndices{c}

	for pi := c; ; {
		next, ok := w.add(pi, 1)
		if !ok || comparePages(next, end) > 0 {
			break
		}
		out = append(out, next)
		pi = next
	}

	for pi := start; comparePages(pi, c) < 0; {
		out = append(out, pi)
		next, ok := w.add(pi, 1)
		if !ok {
			break
		}
		pi = next
	}
	return out
}

// diffRange lists the slots that fall out of the preload window when the
// current page moves from one slot to another, ordered low to high. Nil
// when the old and new windows fully overlap.
func (w *window) diffRange(from, to pageIndices, behind, ahead int) []pageIndices {
	if from == to {
		return nil
	}

	var start, end pageIndices
	if comparePages(from, to) > 0 {
		var ok bool
		start, ok = w.add(to, ahead+1)
		if !ok {
			return nil
		}
		end = w.moveClamped(from, display.Forwards, ahead)
	} else {
		start = w.moveClamped(from, display.Backwards, behind)
		var ok bool
		end, ok = w.sub(to, behind+1)
		if !ok {
			return nil
		}
	}
	if comparePages(start, end) > 0 {
		panic(fmt.Sprintf("inverted unload range %v..%v moving %v to %v", start, end, from, to))
	}

	out := []pageIndices{start}
	for pi := start; comparePages(pi, end) < 0; {
		next, ok := w.add(pi, 1)
		if !ok {
			panic(fmt.Sprintf("unload range %v..%v ran off the window at %v", start, end, pi))
		}
		out = append(out, next)
		pi = next
	}
	return out
}
