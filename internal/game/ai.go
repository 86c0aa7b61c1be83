package game

// retarget picks a new cardinal heading and a randomised timer
func (w *World) retarget(e *Enemy) {
	d := directions[w.rng.Intn(len(directions))]
	e.HeadX = float64(d[0])
	e.HeadY = float64(d[1])
	span := w.Rules.AIRetargetMax - w.Rules.AIRetargetMin
	if span < 0 {
		span = 0
	}
	e.RetargetT = w.Rules.AIRetargetMin + w.rng.Float64()*span
}

// enemyIntent advances the AI timer and returns the proposed displacement.
// Heading only changes when the timer runs out.
func (w *World) enemyIntent(e *Enemy, dt float64) (float64, float64) {
	e.RetargetT -= dt
	if e.RetargetT <= 0 {
		w.retarget(e)
	}
	return e.HeadX * e.Speed * dt, e.HeadY * e.Speed * dt
}
