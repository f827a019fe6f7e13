package practice

const (
	PointsPerPracticeEntry      = 10
	PointsPerHomeworkSubmission = 20
	MendCost                    = 50
)

// CalculatePoints returns the total points earned; mend entries count as practice entries.
func CalculatePoints(entries, submissions int) int {
	return entries*PointsPerPracticeEntry + submissions*PointsPerHomeworkSubmission
}

// AvailablePoints returns the points left after paying for mendsUsed streak mends.
func AvailablePoints(totalPoints, mendsUsed int) int {
	return totalPoints - mendsUsed*MendCost
}
