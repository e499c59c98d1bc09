package main

// registerBank lists the registers available for expression temporaries,
// in allocation priority order. rax and rdx are left out because calls
// return in rax and idiv clobbers rdx:rax.
var registerBank = []string{"r10", "r11", "rcx", "rsi", "rdi", "r8", "r9"}

// RegisterAllocator hands out registers from a fixed bank. Registers are
// released strictly in the reverse order they were claimed.
type RegisterAllocator struct {
	held    []string // last-claimed on top
	locks   int
	unlocks int
}

func NewRegisterAllocator() *RegisterAllocator {
	return &RegisterAllocator{}
}

// Reset releases every register and clears the counters.
func (ra *RegisterAllocator) Reset() {
	ra.held = ra.held[:0]
	ra.locks = 0
	ra.unlocks = 0
}

func (ra *RegisterAllocator) isHeld(reg string) bool {
	for _, h := range ra.held {
		if h == reg {
			return true
		}
	}
	return false
}

// Lock claims the first free register in priority order.
func (ra *RegisterAllocator) Lock() (string, error) {
	for _, reg := range registerBank {
		if !ra.isHeld(reg) {
			ra.held = append(ra.held, reg)
			ra.locks++
			return reg, nil
		}
	}
	return "", errorf(ResourceError, "expression too complex: all %d registers are in use", len(registerBank))
}

// Unlock releases the most recently claimed register and returns it.
func (ra *RegisterAllocator) Unlock() (string, error) {
	if len(ra.held) == 0 {
		return "", internalError("register unlock with no register locked (%d locks, %d unlocks)", ra.locks, ra.unlocks)
	}
	reg := ra.held[len(ra.held)-1]
	ra.held = ra.held[:len(ra.held)-1]
	ra.unlocks++
	if ra.unlocks > ra.locks {
		return "", internalError("register unlocks (%d) exceed locks (%d)", ra.unlocks, ra.locks)
	}
	return reg, nil
}

// Release unlocks reg, which must be the most recently claimed register.
func (ra *RegisterAllocator) Release(reg string) error {
	if len(ra.held) == 0 || ra.held[len(ra.held)-1] != reg {
		return internalError("register %s released out of order (held: %v)", reg, ra.held)
	}
	_, err := ra.Unlock()
	return err
}

// Held returns the claimed registers, oldest first.
func (ra *RegisterAllocator) Held() []string {
	return append([]string(nil), ra.held...)
}

// Counts returns the number of Lock and Unlock calls since the last Reset.
func (ra *RegisterAllocator) Counts() (locks, unlocks int) {
	return ra.locks, ra.unlocks
}

// Balanced reports whether every claimed register has been released.
func (ra *RegisterAllocator) Balanced() bool {
	return len(ra.held) == 0 && ra.locks == ra.unlocks
}
