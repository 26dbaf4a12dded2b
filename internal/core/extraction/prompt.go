package extraction

// DefaultPrompt asks the model for the exact JSON shape the normalizer
// expects: one rows list of crime-head statistics plus an optional
// conviction summary. The response MIME type is forced to JSON on the
// model, so the prompt only has to pin the field names.
const DefaultPrompt = `Analyze this page of a monthly crime report and extract every statistics table row.

Return ONLY a JSON object with this exact shape:

{
  "rows": [
    {
      "crime_head": "Murder",
      "registered": 12,
      "detected": 9,
      "pending_0_3": 2,
      "pending_3_6": 1,
      "pending_6_12": 0,
      "pending_1_year": 0
    }
  ],
  "conviction": {
    "decided": 15,
    "convicted": 9,
    "acquitted": 6
  }
}

Rules:
- "crime_head" is the crime category name exactly as printed on the page.
- "registered" and "detected" are the case counts for that head.
- The four "pending_*" fields are the pending-case age buckets (0-3 months, 3-6 months, 6-12 months, above 1 year). Use 0 for any bucket not shown.
- Include "conviction" only if the page shows decided/convicted/acquitted court figures; omit it otherwise.
- If the page has no statistics table at all, return {"rows": []}.
- Do not compute percentages or rates; report only the raw counts.
- Return valid JSON only, no additional text.`
