package scoring

// Quality is a coarse label for a score.
type Quality string

const (
	QualityExcellent Quality = "excellent"
	QualityGood      Quality = "good"
	QualityFair      Quality = "fair"
	QualityPoor      Quality = "poor"
	QualityNone      Quality = "none"
)

// Qualities lists the buckets from best to worst.
var Qualities = []Quality{QualityExcellent, QualityGood, QualityFair, QualityPoor, QualityNone}

func QualityOf(score int) Quality {
	switch {
	case score >= 80:
		return QualityExcellent
	case score >= 60:
		return QualityGood
	case score >= 40:
		return QualityFair
	case score >= 20:
		return QualityPoor
	default:
		return QualityNone
	}
}
