// Package jobs holds scraped job postings as an ordered table.
//
// The scraper owns the schema. A Table keeps columns in the order the
// scraper produced them, so JSON and CSV output preserve field order.
package jobs
