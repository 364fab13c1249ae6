package game

// Token is the exclusive right to mutate the game. Only one is live at a time.
type Token struct {
	g  *Game
	id uint64
}

// AcquireToken takes the turn token.
func (g *Game) AcquireToken() (*Token, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.token != nil {
		return nil, ErrTokenHeld
	}
	g.tokenSeq++
	g.token = &Token{g: g, id: g.tokenSeq}
	return g.token, nil
}

// Release gives the token back. Releasing twice is a no-op.
func (t *Token) Release() {
	if t == nil {
		return
	}
	t.g.mu.Lock()
	defer t.g.mu.Unlock()
	if t.g.token == t {
		t.g.token = nil
	}
}

// checkLocked verifies tok is the live token. g.mu must be held.
func (g *Game) checkLocked(tok *Token) error {
	if tok == nil || g.token != tok {
		return ErrStaleToken
	}
	return nil
}
