// Copyright (C) 2025 The CoreReports Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package knowledge

// baseline is the built-in AIMS domain context. The first three sections
// are fundamental to every query and always rendered; the rest are gated
// on question keywords to keep prompts focused.
func baseline() []Section {
	return []Section{
		{
			Name:   "business_rules",
			Title:  "BUSINESS RULES",
			Always: true,
			Lines: []string{
				"All data lives in the single denormalized view insmv.AIMS_ALL_DATA",
				"Policy key: DOC_BRANCH + DOC_OFFICE + class + subclass + POL_NO + POL_YEAR",
				"Claim key: CLAIM_BRANCH + CLAIM_OFFICE + class + subclass + CLAIM_NO + CLAIM_ACC_YEAR",
				"Open claims: CLAIM_CLOSE_DT IS NULL",
				"Valid accounts: ACCOUNT_STATUS = 1",
				"Active policies: DOC_ST_DT <= CURRENT_DATE AND DOC_INS_ED_DT >= CURRENT_DATE",
				"DOC_TYPE meanings: 1=New Policy, 2=Additional, 4=Renewal, 5=Marine Certificate; others are amendments or cancellations",
				"DUAL COUNTING for policy counts: POLICY COUNT = COUNT(DISTINCT CASE WHEN DOC_TYPE IN (1,4) THEN DOC_KEY_FORM END); TRANSACTION COUNT = COUNT(DISTINCT DOC_KEY_FORM)",
				"Business channel: DOC_AGENT_NAME NULL = DIRECT business, NOT NULL = BROKER business",
				"Loss ratio: ((SUM(PAY_AMT) + SUM(CLAIM_OS_VAL) - SUM(PAY_REC_AMT)) / NULLIF(SUM(DOC_PREMIUM), 0)) * 100",
				"Renewals: DOC_TYPE = 4 with REN_POL_NO and REN_POL_YEAR not null",
			},
		},
		{
			Name:   "search_keys",
			Title:  "CRITICAL SEARCH KEY PATTERNS",
			Always: true,
			Lines: []string{
				"CUST_ID_NO: individual national ID, exactly 11 digits, primary customer identifier",
				"COMP_EID_NO: company registration number for corporate customers",
				"DOC_CUST_NAME: customer display name, used for name search and default grouping",
				"DOC_CUST_SL_COD1: internal customer code, distinct from CUST_ID_NO, counting only",
				"Individual customers: CUST_ID_NO IS NOT NULL AND COMP_EID_NO IS NULL",
				"Company customers: CUST_ID_NO IS NULL AND COMP_EID_NO IS NOT NULL",
				"Phone search: CUST_PHONE_NO and CUST_MOBILE_NO with LIKE, 8-11 digits",
				"DOC_AGENT_NAME: broker/agent name; agent and broker are the same thing",
				"DOC_USER_NAME: system user who registered the document",
				"Customer grouping default: GROUP BY DOC_CUST_NAME only; add CUST_ID_NO only when the user explicitly asks per ID",
			},
		},
		{
			Name:   "oracle_sql",
			Title:  "ORACLE SQL CONSTRAINTS",
			Always: true,
			Lines: []string{
				"Oracle does NOT support LIMIT, TOP, or FETCH FIRST in this deployment",
				"Top-N queries MUST wrap in a subquery: SELECT * FROM (SELECT ... ORDER BY ...) WHERE ROWNUM <= N",
				"ROWNUM is evaluated before ORDER BY, so the subquery form is mandatory",
				"Trigger keywords for Top-N: top, first, highest, lowest, largest, smallest, best, worst, most, least",
				"Code fields (_TYPE) hold numeric codes; name fields (_NAME) hold descriptive text; match user wording to _NAME fields",
			},
		},
		{
			Name:     "organizational_structure",
			Title:    "ORGANIZATIONAL STRUCTURE",
			Keywords: []string{"branch", "office", "organization", "structure", "takaful", "shamel", "international", "india", "lebanon", "dubai", "lulu", "digital", "channel", "distribution"},
			Lines: []string{
				"5 branches, 32 offices total",
				"Main Branch: 21 offices including Head Office, Al-Khor, Al-Rayyan, Lulu Centers, CALL CENTER, WEB, Online_agent, Hamad International Airport, Qatar Energy",
				"Doha Islamic Insurance - Shamel: 8 Takaful offices including Doha Shamel Office, Mawater, WEB DT",
				"India Branch: 1 office (IFSC Branch)",
				"Mena Life: 1 office (Lebanon)",
				"Mena Re Underwriters: 1 office (Dubai, reinsurance hub)",
				"Distribution: Digital (WEB, Online agents, Call Center), Retail (Lulu Centers), Partnerships (Qatar Energy, Hamad Airport, Arab Orient)",
			},
		},
		{
			Name:     "lines_of_business",
			Title:    "LINES OF BUSINESS",
			Keywords: []string{"motor", "life", "medical", "fire", "marine", "aviation", "energy", "engineering", "product", "line", "business", "insurance"},
			Lines: []string{
				"Motor (Main + Shamel): Comprehensive, T.P.L, Own Damage, Fleet, Orange Card, P.A.B",
				"Group Life & Medical (all branches except Mena Re): Group Life, Group Medical, Travel, BUPA Plans, Domestic Helper",
				"Fire (4 branches): Fire Basic, Property All Risk, Householders Comprehensive, Sabotage & Terrorism",
				"Marine Cargo and Marine Hull, Aviation, Energy, Engineering in specialized branches",
				"Motor codes: DOC_MAJ_INS_TYPE 29 = Motor, DOC_MIN_INS_TYPE 111 = Comprehensive",
			},
		},
		{
			Name:     "customer_information",
			Title:    "CUSTOMER INFORMATION",
			Keywords: []string{"customer", "individual", "company", "corporate", "client", "cust"},
			Lines: []string{
				"Individual: CUST_ID_NO not null, COMP_EID_NO null",
				"Company: CUST_ID_NO null, COMP_EID_NO not null",
				"One customer name may map to multiple IDs; name-level grouping consolidates them",
				"Name lookups search DOC_CUST_NAME; ID lookups use exact CUST_ID_NO equality",
			},
		},
		{
			Name:     "claims",
			Title:    "CLAIMS",
			Keywords: []string{"claim", "accident", "loss", "damage", "settle"},
			Lines: []string{
				"Claim amount fields: CLAIM_OS_VAL (outstanding), PAY_AMT (paid), PAY_REC_AMT (recovered)",
				"CLAIM_STATUS: Open/Close; open means CLAIM_CLOSE_DT IS NULL",
				"43 accident types; CLAIM_ACC_TYPE 4 = Material damage to third party vehicle is the most common",
				"Claim dates: CLAIM_REG_DT (registered), CLAIM_ACC_DT (accident)",
			},
		},
		{
			Name:     "vehicles",
			Title:    "VEHICLE DATA",
			Keywords: []string{"vehicle", "car", "plate", "make", "model", "motor"},
			Lines: []string{
				"Vehicle fields: DOC_PLATE_NO, DOC_MAKE_NAME, DOC_MODEL, DOC_PROD_YEAR, DOC_BODY_NAME",
				"628 makes, 6,962 models, 18 plate types, 15 cylinder types",
			},
		},
		{
			Name:     "financials",
			Title:    "FINANCIAL FIELDS",
			Keywords: []string{"premium", "amount", "paid", "payment", "sum insured", "fee", "discount", "revenue", "total"},
			Lines: []string{
				"DOC_PREMIUM: document premium; DOC_SUM_INSURED: insured value",
				"PRD_NPREMTL / PRD_PREMTL: period premium totals across 8 premium periods",
				"Payment fields: PAY_SLIP_NO, PAY_AMT, PAY_REC_AMT, PAY_TP_LNAME",
			},
		},
	}
}
