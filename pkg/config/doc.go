/*
Package config loads the manifest that drives a patch batch.

	            +-------------+
	            |  Manifest   |
	            | targets +   |
	            |   rules     |
	            +------+------+
	                   |
	      +------------+------------+
	      |            |            |
	+-----+----+ +-----+----+ +-----+----+
	|   YAML   | |   JSON   | |   HCL    |
	|  Parser  | |  Parser  | |  Parser  |
	+----------+ +----------+ +----------+

🎯 Purpose:
  - Declares the target files and the per-target parameters
  - Declares the ordered rule catalog
  - Compiles patterns and templates up front so configuration errors surface
    before any file is touched

🔄 Flow:
1. Reads the manifest file
2. Picks a parser from the file extension
3. Validates targets and compiles rules
4. Hands targets and compiled rules to the batch runner

🔍 Example:

	targets:
	  - path: src/pages/repair/chilliwack.tsx
	    params:
	      city_name: chilliwack
	rules:
	  - name: hook-import
	    literal: "import { LocalBusinessSchema } from '@/components/seo/StructuredData';"
	    replace: "import { LocalBusinessSchema } from '@/components/seo/StructuredData';\nimport { useSimplePhoneNumber } from '@/hooks/useBusinessSettings';"
	    marker: useSimplePhoneNumber

Templates reference target parameters, manifest vars and environment
variables ({{env.NAME}}) by name, and regex captures by number or group name.
*/
package config
