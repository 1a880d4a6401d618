// Package models defines the domain types exchanged with the Persona service.
//
//   - [Identity] : cached profile of the logged in user, persisted next to the credentials
//   - [Persona] : a generation job and its [JobStatus] (pending, processing, completed, failed)
//   - [CreatePersonaRequest] : body of a job submission
//   - [Product] : shop page data used to seed a prompt
//   - [Notification] : read-only activity feed item
//   - [LikeState] : optimistic like count and flag
//   - [HistoryEntry] : locally recorded submission
//
// JSON tags follow the service's wire names (imageUrl, videoUrl, dnaCard).
// Persona and Notification accept the server's "_id" keys and populated references.
package models
