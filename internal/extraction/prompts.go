package extraction

const coiSystemPrompt = `You are an expert at reading Certificates of Insurance (ACORD 25 and similar forms). You read coverage limits, policy expiration dates, and endorsement checkboxes with perfect accuracy. Always respond with valid JSON.`

const coiExtractionPrompt = `Extract the insurance coverage data from this Certificate of Insurance.

Respond with ONLY a valid JSON object (no markdown, no explanation) with this exact structure:
{
  "coverage": {
    "generalLiability": {"amount": <each-occurrence limit as number or null>, "aggregate": <general aggregate as number or null>, "expirationDate": "YYYY-MM-DD"},
    "autoLiability": {"amount": <combined single limit>, "expirationDate": "YYYY-MM-DD"},
    "workersComp": {"amount": <number, or the string "Statutory" when the form shows the statutory limits box checked>, "expirationDate": "YYYY-MM-DD"},
    "employersLiability": {"amount": <each-accident limit>, "expirationDate": "YYYY-MM-DD"},
    "propertyContents": {"amount": <number>, "expirationDate": "YYYY-MM-DD"},
    "umbrella": {"amount": <each-occurrence limit>, "expirationDate": "YYYY-MM-DD"},
    "professionalLiability": {"amount": <per-claim limit>, "expirationDate": "YYYY-MM-DD"}
  },
  "additionalCoverages": [{"type": "<coverage name as printed>", "amount": <number>, "expirationDate": "YYYY-MM-DD"}],
  "hasAdditionalInsured": <true if an additional insured endorsement is indicated>,
  "hasWaiverOfSubrogation": <true if waiver of subrogation is indicated>,
  "expirationDate": "<earliest policy expiration date, YYYY-MM-DD>",
  "insuredName": "<named insured>",
  "producerName": "<producer/agency>",
  "issues": ["<any legibility problems, missing sections, or inconsistencies you notice>"]
}

Omit coverage entries that do not appear on the certificate. Use null for amounts you cannot read. Dates must be YYYY-MM-DD.`

const leaseSystemPrompt = `You are an expert at reading commercial lease insurance clauses. You extract the insurance coverage minimums a tenant is required to carry. Always respond with valid JSON.`

const leaseExtractionPrompt = `Extract the tenant insurance requirements from this lease's insurance section.

Respond with ONLY a valid JSON object (no markdown, no explanation) with this exact structure, where every entry carries your confidence (0-100) that the value is what the lease actually requires:
{
  "gl_per_occurrence": {"value": <number>, "confidence": <0-100>},
  "gl_aggregate": {"value": <number>, "confidence": <0-100>},
  "auto_liability": {"value": <number>, "confidence": <0-100>},
  "employers_liability": {"value": <number>, "confidence": <0-100>},
  "property_contents": {"value": <number>, "confidence": <0-100>},
  "umbrella": {"value": <number>, "confidence": <0-100>},
  "professional_liability": {"value": <number>, "confidence": <0-100>},
  "workers_comp_statutory": {"value": <true|false>, "confidence": <0-100>},
  "additional_insured_required": {"value": <true|false>, "confidence": <0-100>},
  "waiver_of_subrogation_required": {"value": <true|false>, "confidence": <0-100>},
  "additional_insured_entities": ["<entities that must be named as additional insured>"],
  "special_endorsements": ["<other endorsements the lease names>"]
}

Omit entries the lease does not address.`
