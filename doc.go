// Copyright 2026 xformhub.io. All rights reserved.
// Use of this source code is governed by an MIT-style license
// that can be found in the LICENSE file.

/*
Package xform-app-sheets exports structured survey response data, collected
against XLSForm definitions, to Google Sheets.

An export creates a new spreadsheet, adds one worksheet per survey section
(the main form plus each repeat group), writes the header and data rows, and
optionally copies the form definition sheets into the spreadsheet.

xform-app-sheets supports the following commands:

  - authorise, to authorise the application to create and write spreadsheets
  - export, to export a survey dataset to a new Google Sheets spreadsheet
  - get, to download a Google Sheets worksheet as a TSV file
  - put, to store a TSV file to a Google Sheets worksheet
*/
package sheets
