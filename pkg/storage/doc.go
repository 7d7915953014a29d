// Package storage writes and reads the files a discovery run produces.
//
// The storage package handles:
//   - The profile CSV with its fixed column order
//   - Loading a previous CSV to seed deduplication and to merge results
//   - CSV structure and data quality validation
//   - The plain-text summary report and its optional DOCX rendition
//
// The Manager type owns the output directory. Every file goes through a temporary
// file and a rename, so an interrupted write never leaves a truncated CSV behind.
//
// Usage:
//
//	manager, err := storage.NewManager("output")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	existing, err := manager.LoadProfiles("linkedin_profiles.csv")
//	merged, _ := storage.MergeProfiles(existing, result.Profiles)
//	err = manager.SaveProfiles("linkedin_profiles.csv", merged)
package storage
