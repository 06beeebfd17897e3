package splparser

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	docUUID      = "11111111-1111-1111-1111-111111111111"
	listingUUID  = "22222222-2222-2222-2222-222222222222"
	activeUUID   = "33333333-3333-3333-3333-333333333333"
	warningsUUID = "44444444-4444-4444-4444-444444444444"
	askUUID      = "55555555-5555-5555-5555-555555555555"
)

const fullLabel = `<?xml version="1.0" encoding="UTF-8"?>
<document xmlns="urn:hl7-org:v3" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">
  <id root="11111111-1111-1111-1111-111111111111"/>
  <code code="34390-5" codeSystem="2.16.840.1.113883.6.1" displayName="HUMAN OTC DRUG LABEL"/>
  <title>Aspirin Tablets</title>
  <effectiveTime value="20240115"/>
  <setId root="11111111-1111-1111-1111-111111111111"/>
  <versionNumber value="3"/>
  <author>
    <time value="20240115"/>
    <assignedEntity>
      <representedOrganization>
        <id extension="123456789" root="1.3.6.1.4.1.519.1"/>
        <name>Acme Pharma</name>
        <assignedEntity>
          <assignedOrganization>
            <id extension="987654321" root="1.3.6.1.4.1.519.1"/>
            <name>Acme Manufacturing</name>
          </assignedOrganization>
        </assignedEntity>
      </representedOrganization>
    </assignedEntity>
  </author>
  <component>
    <structuredBody>
      <component>
        <section>
          <id root="22222222-2222-2222-2222-222222222222"/>
          <code code="48780-1" codeSystem="2.16.840.1.113883.6.1" displayName="SPL PRODUCT DATA ELEMENTS SECTION"/>
          <subject>
            <manufacturedProduct>
              <manufacturedProduct>
                <code code="12345-678" codeSystem="2.16.840.1.113883.6.69"/>
                <name>Aspirin <suffix>Regular Strength</suffix></name>
                <formCode code="C42998" codeSystem="2.16.840.1.113883.3.26.1.1" displayName="TABLET"/>
                <asEntityWithGeneric>
                  <genericMedicine>
                    <name>aspirin</name>
                  </genericMedicine>
                </asEntityWithGeneric>
                <ingredient classCode="ACTIM">
                  <quantity>
                    <numerator value="325" unit="mg"/>
                    <denominator value="1" unit="1"/>
                  </quantity>
                  <ingredientSubstance>
                    <code code="R16CO5Y76E" codeSystem="2.16.840.1.113883.4.9"/>
                    <name>ASPIRIN</name>
                    <activeMoiety>
                      <activeMoiety>
                        <code code="R16CO5Y76E" codeSystem="2.16.840.1.113883.4.9"/>
                        <name>ASPIRIN</name>
                      </activeMoiety>
                    </activeMoiety>
                  </ingredientSubstance>
                </ingredient>
                <ingredient classCode="IACT">
                  <ingredientSubstance>
                    <code code="ETJ7Z6XBU4" codeSystem="2.16.840.1.113883.4.9"/>
                    <name>SILICON DIOXIDE</name>
                  </ingredientSubstance>
                </ingredient>
                <asContent>
                  <quantity>
                    <numerator value="100" unit="1"/>
                    <denominator value="1" unit="1"/>
                  </quantity>
                  <containerPackagedProduct>
                    <code code="12345-678-01" codeSystem="2.16.840.1.113883.6.69"/>
                    <formCode code="C43169" codeSystem="2.16.840.1.113883.3.26.1.1" displayName="BOTTLE"/>
                  </containerPackagedProduct>
                </asContent>
              </manufacturedProduct>
              <subjectOf>
                <approval>
                  <id extension="M013" root="2.16.840.1.113883.3.150"/>
                  <code code="C200263" codeSystem="2.16.840.1.113883.3.26.1.1" displayName="OTC MONOGRAPH DRUG"/>
                  <author>
                    <territorialAuthority>
                      <territory>
                        <code code="USA" codeSystem="2.16.840.1.113883.5.28"/>
                      </territory>
                    </territorialAuthority>
                  </author>
                </approval>
              </subjectOf>
              <subjectOf>
                <marketingAct>
                  <code code="C53292" codeSystem="2.16.840.1.113883.3.26.1.1"/>
                  <statusCode code="active"/>
                  <effectiveTime>
                    <low value="20200101"/>
                  </effectiveTime>
                </marketingAct>
              </subjectOf>
              <consumedIn>
                <substanceAdministration>
                  <routeCode code="C38288" codeSystem="2.16.840.1.113883.3.26.1.1" displayName="ORAL"/>
                </substanceAdministration>
              </consumedIn>
            </manufacturedProduct>
          </subject>
        </section>
      </component>
      <component>
        <section>
          <id root="33333333-3333-3333-3333-333333333333"/>
          <code code="55106-9" codeSystem="2.16.840.1.113883.6.1"/>
          <title>Active ingredient</title>
          <text>
            <paragraph>Aspirin 325 mg</paragraph>
          </text>
        </section>
      </component>
      <component>
        <section>
          <id root="44444444-4444-4444-4444-444444444444"/>
          <code code="34071-1" codeSystem="2.16.840.1.113883.6.1"/>
          <title>Warnings</title>
          <effectiveTime value="20240115"/>
          <text>
            <paragraph>Reye's syndrome: Children and teenagers should not use this medicine.</paragraph>
            <list>
              <item>hives</item>
              <item>facial swelling</item>
            </list>
            <renderMultiMedia referencedObject="MM1"/>
          </text>
          <component>
            <observationMedia ID="MM1">
              <text>Package label</text>
              <value mediaType="image/jpeg">
                <reference value="label.jpg"/>
              </value>
            </observationMedia>
          </component>
          <component>
            <section>
              <id root="55555555-5555-5555-5555-555555555555"/>
              <code code="50569-3" codeSystem="2.16.840.1.113883.6.1"/>
              <title>Ask a doctor before use if you have</title>
              <text>
                <paragraph>stomach bleeding</paragraph>
              </text>
            </section>
          </component>
        </section>
      </component>
    </structuredBody>
  </component>
</document>`

var (
	openTagRegex = regexp.MustCompile(`<(/?)([A-Za-z])`)
)

// withPrefix rewrites a default-namespace document so every element uses the hl7: prefix.
func withPrefix(doc string) string {
	out := openTagRegex.ReplaceAllString(doc, "<${1}hl7:${2}")
	return strings.Replace(out, `xmlns="urn:hl7-org:v3"`, `xmlns:hl7="urn:hl7-org:v3"`, 1)
}

// labelWith wraps sections in a document with valid identity elements.
func labelWith(sections ...string) string {
	return fmt.Sprintf(`<document xmlns="urn:hl7-org:v3">
  <id root="%[1]s"/>
  <code code="34390-5" codeSystem="2.16.840.1.113883.6.1"/>
  <setId root="%[1]s"/>
  <versionNumber value="1"/>
  <component><structuredBody>%[2]s</structuredBody></component>
</document>`, docUUID, strings.Join(sections, ""))
}

// section renders a component/section with the given id, LOINC code and inner XML.
func section(id, loinc, inner string) string {
	code := ""
	if loinc != "" {
		code = fmt.Sprintf(`<code code="%s" codeSystem="2.16.840.1.113883.6.1"/>`, loinc)
	}
	idEl := ""
	if id != "" {
		idEl = fmt.Sprintf(`<id root="%s"/>`, id)
	}
	return fmt.Sprintf(`<component><section>%s%s%s</section></component>`, idEl, code, inner)
}

// product renders a subject with the usual outer/inner manufacturedProduct nesting.
func product(name, inner string) string {
	return fmt.Sprintf(`<subject><manufacturedProduct><manufacturedProduct><name>%s</name>%s</manufacturedProduct></manufacturedProduct></subject>`, name, inner)
}

func ingredient(classCode, substance string) string {
	return fmt.Sprintf(`<ingredient classCode="%s">%s</ingredient>`, classCode, substance)
}
