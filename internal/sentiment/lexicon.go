package sentiment

// Curated finance-domain polarity terms. The lists follow the
// Loughran-McDonald style of financial tone words: terms that carry a
// reliable directional signal in earnings and market news.
var financePositive = map[string]struct{}{
	"beat": {}, "exceed": {}, "exceeded": {}, "strong": {}, "strength": {},
	"growth": {}, "grow": {}, "profit": {}, "profitable": {}, "gain": {},
	"gains": {}, "surge": {}, "surged": {}, "rally": {}, "rallied": {},
	"bullish": {}, "optimistic": {}, "optimism": {}, "upgrade": {},
	"upgraded": {}, "outperform": {}, "outperformed": {}, "breakthrough": {},
	"success": {}, "successful": {}, "record": {}, "robust": {}, "solid": {},
	"positive": {}, "momentum": {}, "opportunity": {}, "opportunities": {},
	"expansion": {}, "expand": {}, "innovation": {}, "innovative": {},
	"leadership": {}, "competitive": {}, "efficient": {}, "efficiency": {},
	"improve": {}, "improved": {}, "improvement": {}, "accelerate": {},
	"accelerating": {}, "upside": {}, "boost": {}, "boosted": {},
	"recovery": {}, "recover": {}, "rebound": {}, "rebounded": {},
	"dividend": {}, "buyback": {}, "outlook": {}, "raised": {},
	"beats": {}, "tops": {}, "topped": {}, "soar": {}, "soared": {},
	"climb": {}, "climbed": {}, "advantage": {}, "resilient": {},
	"strengthen": {}, "strengthened": {}, "upbeat": {}, "favorable": {},
	"milestone": {}, "win": {}, "winning": {}, "winner": {},
	"overweight": {}, "attractive": {}, "stellar": {}, "impressive": {},
}

var financeNegative = map[string]struct{}{
	"miss": {}, "missed": {}, "disappoint": {}, "disappointing": {},
	"disappointed": {}, "decline": {}, "declined": {}, "declining": {},
	"loss": {}, "losses": {}, "drop": {}, "dropped": {}, "fall": {},
	"fell": {}, "falling": {}, "crash": {}, "crashed": {}, "bearish": {},
	"pessimistic": {}, "pessimism": {}, "downgrade": {}, "downgraded": {},
	"underperform": {}, "underperformed": {}, "concern": {}, "concerns": {},
	"challenge": {}, "challenges": {}, "challenging": {}, "risk": {},
	"risks": {}, "risky": {}, "uncertainty": {}, "uncertain": {},
	"volatility": {}, "volatile": {}, "pressure": {}, "pressured": {},
	"weakness": {}, "weak": {}, "weakened": {}, "struggling": {},
	"struggle": {}, "struggled": {}, "difficult": {}, "difficulty": {},
	"problem": {}, "problems": {}, "threat": {}, "threats": {},
	"lawsuit": {}, "investigation": {}, "probe": {}, "recall": {},
	"layoff": {}, "layoffs": {}, "bankruptcy": {}, "default": {},
	"slump": {}, "slumped": {}, "plunge": {}, "plunged": {},
	"tumble": {}, "tumbled": {}, "slowdown": {}, "slowing": {},
	"shortfall": {}, "deficit": {}, "writedown": {}, "impairment": {},
	"warning": {}, "warned": {}, "cut": {}, "cuts": {}, "downturn": {},
	"recession": {}, "headwind": {}, "headwinds": {}, "litigation": {},
	"underweight": {}, "unfavorable": {}, "erosion": {}, "deteriorate": {},
	"deteriorating": {}, "fraud": {}, "penalty": {}, "fine": {},
}

// General-purpose valence baseline: common English polarity words with
// graded weights, the counterpart of a general sentiment library's
// polarity score. Blended with the finance lexicon at a configured weight.
var generalValence = map[string]float64{
	"good": 0.6, "great": 0.8, "excellent": 0.9, "best": 0.9,
	"amazing": 0.8, "wonderful": 0.8, "outstanding": 0.9, "superb": 0.9,
	"happy": 0.6, "love": 0.7, "like": 0.3, "better": 0.4,
	"top": 0.4, "high": 0.2, "higher": 0.3, "highest": 0.4,
	"up": 0.2, "rise": 0.4, "rising": 0.4, "rose": 0.4,
	"well": 0.3, "healthy": 0.5, "confident": 0.5, "confidence": 0.4,
	"safe": 0.3, "stable": 0.3, "steady": 0.2, "support": 0.2,

	"bad": -0.6, "terrible": -0.9, "awful": -0.9, "worst": -0.9,
	"horrible": -0.9, "poor": -0.6, "worse": -0.5, "negative": -0.5,
	"sad": -0.5, "hate": -0.7, "fear": -0.6, "fears": -0.6,
	"low": -0.2, "lower": -0.3, "lowest": -0.4, "down": -0.2,
	"sink": -0.5, "sinking": -0.5, "sank": -0.5, "hurt": -0.5,
	"damage": -0.5, "damaged": -0.5, "crisis": -0.7, "panic": -0.8,
	"trouble": -0.5, "troubled": -0.5, "fail": -0.7, "failed": -0.7,
	"failure": -0.7, "wrong": -0.4, "doubt": -0.4, "doubts": -0.4,
}
