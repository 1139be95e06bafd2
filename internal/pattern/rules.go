package pattern

import "candlewatch/internal/model"

// rule is one row of the pattern table. match receives exactly lookback bars
// in chronological order. Rules flagged ratio compare against the newest
// bar's range and are skipped when that range is zero.
type rule struct {
	name      model.PatternName
	direction model.Direction
	lookback  int
	ratio     bool
	match     func(b []model.Bar) bool
}

// MaxLookback is the largest number of bars any rule inspects.
const MaxLookback = 3

const (
	dojiBody     = 0.10
	smallBody    = 0.30
	marubozuBody = 0.60
	shadowFactor = 2.0
)

var rules = []rule{
	// ── single bar ──
	{model.Doji, model.Neutral, 1, true, func(b []model.Bar) bool {
		l := b[0]
		return l.Body() < dojiBody*l.Range()
	}},
	{model.Hammer, model.Up, 1, true, func(b []model.Bar) bool {
		l := b[0]
		return l.Body() < smallBody*l.Range() && l.LowerShadow() > shadowFactor*l.Body()
	}},
	{model.ShootingStar, model.Down, 1, true, func(b []model.Bar) bool {
		l := b[0]
		return l.Body() < smallBody*l.Range() && l.UpperShadow() > shadowFactor*l.Body()
	}},
	{model.BullishMarubozu, model.Up, 1, true, func(b []model.Bar) bool {
		l := b[0]
		return l.Body() > marubozuBody*l.Range() && l.Bullish()
	}},
	{model.BearishMarubozu, model.Down, 1, true, func(b []model.Bar) bool {
		l := b[0]
		return l.Body() > marubozuBody*l.Range() && l.Bearish()
	}},
	{model.HangingMan, model.Down, 1, true, func(b []model.Bar) bool {
		l := b[0]
		return l.LowerShadow() > shadowFactor*l.UpperShadow() && l.Body() < smallBody*l.Range()
	}},
	{model.InvertedHammer, model.Up, 1, true, func(b []model.Bar) bool {
		l := b[0]
		return l.UpperShadow() > shadowFactor*l.LowerShadow() && l.Body() < smallBody*l.Range()
	}},

	// ── two bars: p = previous, l = last ──
	{model.BullishEngulfing, model.Up, 2, false, func(b []model.Bar) bool {
		p, l := b[0], b[1]
		return l.Bullish() && p.Bearish() && l.Close > p.Open && l.Open <= p.Close
	}},
	{model.BearishEngulfing, model.Down, 2, false, func(b []model.Bar) bool {
		p, l := b[0], b[1]
		return l.Bearish() && p.Bullish() && l.Close < p.Open && l.Open >= p.Close
	}},
	{model.PiercingLine, model.Up, 2, false, func(b []model.Bar) bool {
		p, l := b[0], b[1]
		return p.Bearish() && l.Open < p.Low && l.Close > p.Midpoint()
	}},
	{model.DarkCloudCover, model.Down, 2, false, func(b []model.Bar) bool {
		p, l := b[0], b[1]
		return p.Bullish() && l.Open > p.High && l.Close < p.Midpoint()
	}},

	// ── three bars: p2 = oldest, p = middle, l = last ──
	{model.MorningStar, model.Up, 3, false, func(b []model.Bar) bool {
		p2, p, l := b[0], b[1], b[2]
		return p2.Bearish() && p.Bearish() && l.Bullish() && l.Close > p.Open
	}},
	{model.EveningStar, model.Down, 3, false, func(b []model.Bar) bool {
		p2, p, l := b[0], b[1], b[2]
		return p2.Bullish() && p.Bullish() && l.Bearish() && l.Close < p.Open
	}},
	{model.ThreeWhiteSoldiers, model.Up, 3, false, func(b []model.Bar) bool {
		p2, p, l := b[0], b[1], b[2]
		return p2.Bullish() && p.Bullish() && l.Bullish() &&
			p.Close > p2.Close && l.Close > p.Close
	}},
	{model.ThreeBlackCrows, model.Down, 3, false, func(b []model.Bar) bool {
		p2, p, l := b[0], b[1], b[2]
		return p2.Bearish() && p.Bearish() && l.Bearish() &&
			p.Close < p2.Close && l.Close < p.Close
	}},
	// The middle bar pulls back against the trend without erasing the first
	// bar; the last bar resumes and closes past the first bar's close.
	{model.RisingThreeMethods, model.Up, 3, false, func(b []model.Bar) bool {
		p2, p, l := b[0], b[1], b[2]
		return p2.Bullish() && p.Bearish() && p.Close > p2.Open &&
			l.Bullish() && l.Close > p2.Close
	}},
	{model.FallingThreeMethods, model.Down, 3, false, func(b []model.Bar) bool {
		p2, p, l := b[0], b[1], b[2]
		return p2.Bearish() && p.Bullish() && p.Close < p2.Open &&
			l.Bearish() && l.Close < p2.Close
	}},
}

// Names lists every pattern the classifier can report, in evaluation order.
func Names() []model.PatternName {
	out := make([]model.PatternName, len(rules))
	for i, r := range rules {
		out[i] = r.name
	}
	return out
}
