// Package domain defines core data models and interfaces shared across the app.
// It contains plain types (identities, statuses, policies, notices) and
// contracts (stores, the transform engine, listeners) only.
package domain
