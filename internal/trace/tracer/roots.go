package tracer

// seedRoots pulls the references of every enabled root class into the
// seeding worker's object queue.
//
// Every worker seeds all four classes; the marking table deduplicates, so
// concurrent seeding by the whole group costs one failed mark per duplicate
// and never a double visit. The strong classes are always consulted; the
// weak classes only when the session includes weak reachability.
//
// How a provider loads its references (plain, concurrency-safe, or
// no-keep-alive for weak/phantom slots) is the provider's own discipline;
// by the time a reference reaches the seeder the four classes are handled
// uniformly.
func (s *Session) seedRoots(c *context) {
	s.pushRoots(c, s.roots.Strong)
	s.pushRoots(c, s.roots.ConcurrentStrong)

	if s.cfg.IncludeWeak {
		s.pushRoots(c, s.roots.Weak)
		s.pushRoots(c, s.roots.ConcurrentWeak)
	}
}

// pushRoots mark-pushes every reference one provider enumerates. A nil
// provider contributes nothing.
func (s *Session) pushRoots(c *context, provider RootProvider) {
	if provider == nil {
		return
	}
	provider.VisitRoots(c.markAndPush)
}
