// Package importer parses spreadsheet installation plans and installs the
// devices they describe.
//
// Facilities commission equipment from planning spreadsheets: one row per
// component, with quantity, floor and optional world coordinates. The
// importer maps each row to a catalog product by fuzzy name match and
// creates the installed-device records, collecting row-level failures
// without aborting the rows that succeed.
//
// # Expected Columns
//
// Header names are matched ignoring case, spaces and underscores, so
// "Component Name", "ComponentName" and "component_name" are equivalent:
//
//   - Component Name (required): matched against catalog product names
//   - Quantity: copies to install, default 1
//   - Floor Number: default 1
//   - Position X / Position Y / Position Z: metres, optional
//   - Serial: base serial, suffixed -1..-N when quantity > 1
//   - Health Score: default 100
//   - Notes: free text
//
// Rows missing X/Z are placed at the floor's origin for manual positioning.
// A provided X/Z without Y derives Y from the floor number, keeping world
// height authoritative over the stored floor.
//
// # Usage
//
//	plan, err := importer.NewParser().Parse(file, "plan.xlsx")
//	if err != nil {
//	    return err
//	}
//	result := installer.Install(ctx, fac, plan)
//	fmt.Printf("installed %d, %d row errors\n", result.InstalledCount, len(result.Errors))
package importer
