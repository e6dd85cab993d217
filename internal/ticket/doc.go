// Package ticket holds the domain model shared by every pipeline stage: the
// closed category enum, the per-category extraction contracts, the assembled
// Ticket artifact, and the quality gate's review outcomes.
//
// Contract validation lives here so the extraction stage and the assembler
// enforce identical rules: an extraction payload must carry exactly the field
// set its category declares, with no blanks.
package ticket
