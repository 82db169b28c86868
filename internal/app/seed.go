package app

import "codeconnect/internal/domain"

// Sample records written on first run so the platform is browsable before
// the first real login. The fixed ids and dates keep reseeded environments
// identical.

func sampleQuizScores() []domain.QuizScore {
	return []domain.QuizScore{
		{ID: "1", QuizName: "Python Basics", Score: 85, Date: "2024-01-15", UserID: "user-sample-1"},
		{ID: "2", QuizName: "Java OOP", Score: 92, Date: "2024-01-16", UserID: "user-sample-2"},
		{ID: "3", QuizName: "C++ Fundamentals", Score: 78, Date: "2024-01-17", UserID: "user-sample-1"},
	}
}

func sampleChallenges() []domain.Challenge {
	return []domain.Challenge{
		{ID: "1", Title: "Array Sum", Description: "Calculate the sum of all elements in an array", Difficulty: domain.DifficultyEasy, SolvedBy: []string{"user-sample-1", "user-sample-2"}},
		{ID: "2", Title: "Palindrome Checker", Description: "Check if a string is a palindrome", Difficulty: domain.DifficultyMedium, SolvedBy: []string{"user-sample-1"}},
		{ID: "3", Title: "Binary Tree Traversal", Description: "Implement in-order traversal of a binary tree", Difficulty: domain.DifficultyHard, SolvedBy: []string{}},
		{ID: "4", Title: "Two Sum Problem", Description: "Find two numbers that add up to a target", Difficulty: domain.DifficultyEasy, SolvedBy: []string{"user-sample-2"}},
	}
}

func sampleResources() []domain.DSAResource {
	return []domain.DSAResource{
		{ID: "1", Title: "Sorting Algorithms Cheat Sheet", UploadedBy: "user-sample-1", UploadDate: "2024-01-10"},
		{ID: "2", Title: "Graph Theory Notes", UploadedBy: "user-sample-2", UploadDate: "2024-01-12"},
	}
}

func sampleActivities() []domain.Activity {
	return []domain.Activity{
		{ID: "1", UserID: "user-sample-1", Type: domain.ActivityQuiz, Description: "Completed Python Basics quiz with score 85", Timestamp: "2024-01-15T10:30:00Z"},
		{ID: "2", UserID: "user-sample-2", Type: domain.ActivityChallenge, Description: "Solved Array Sum challenge", Timestamp: "2024-01-16T14:20:00Z"},
	}
}
