// Package models contains the server-side persistence models.
package models
