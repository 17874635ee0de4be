package transcribe

import "github.com/snarg/mallok/internal/task"

const (
	enMedicalTerms = "hypertension, diabetes, epilepsy, seizure, stroke, pneumonia, asthma, arthritis, " +
		"acetaminophen, ibuprofen, metformin, amoxicillin, omeprazole, insulin, " +
		"levetiracetam, carbamazepine, valproate, lamotrigine, phenytoin, topiramate, "
	koMedicalTerms = "고혈압, 당뇨병, 심근경색, 갑상선, 위염, 폐렴, 천식, 관절염, 디스크, 우울증, 불면증, " +
		"뇌전증, 간질, 발작, 항경련제, 레비티라세탐, 카바마제핀, 발프로산, 라모트리진, " +
		"타이레놀, 아세트아미노펜, 이부프로펜, 메트포르민, 아목시실린, 오메프라졸, 인슐린, " +
		"혈압, 혈당, CT, MRI, EEG, 내시경, 혈액검사, 심전도, 처방, 복용, 부작용, 합병증"
)

var vocabulary = map[task.Language]map[task.ContentType]string{
	task.English: {
		task.Sermon: "This is a sermon or lecture recording. " +
			"Infer unclear words from context. " +
			"Bible, Scripture, Gospel, salvation, grace, faith, prayer, blessing, congregation, " +
			"sermon, worship, fellowship, testimony, discipleship, ministry, mission",
		task.PhoneCall: "This is a phone call recording with two speakers. " +
			"Audio quality may be low. Infer unclear words from context. " +
			enMedicalTerms +
			"blood pressure, blood sugar, CT, MRI, EEG, ECG, prescription, dosage, side effects",
		task.Conversation: "This is a meeting or conversation recording with multiple speakers. " +
			"Audio may have echo or overlapping voices. Infer unclear words from context. " +
			enMedicalTerms +
			"blood pressure, CT, MRI, EEG, prescription, dosage, side effects, " +
			"KPI, ROI, OKR, project, milestone, sprint, deadline, budget, revenue, profit margin",
	},
	task.Korean: {
		task.Sermon: "다락방, 렘넌트, 237, 5000종족, 7망대, 7여정, 7이정표, CVDIP, 류광수, 이주현, " +
			"드로아교회, 앗수르, 네피림, 바벨탑, 뉴에이지, 프리메이슨, REA, RRTS, TCK, CCK, NCK, " +
			"성회, 전도대회, 수련회, 보좌화, 생활화, 개인화, 제자화, 세계화, Heavenly, Thronely, Eternally, " +
			"록펠러, 카네기, 워너메이커, 존 워너메이커, 쉬버, 마틴 루터",
		task.PhoneCall: "전화 통화 녹음입니다. 두 명의 화자가 대화합니다. " +
			"음질이 낮거나 불명확한 부분은 문맥에 맞게 추정하세요. " +
			koMedicalTerms,
		task.Conversation: "회의 또는 대화 녹음입니다. 여러 참석자가 있습니다. " +
			"음질이 낮거나 겹치는 목소리가 있을 수 있으며, 문맥에 맞게 추정하세요. " +
			koMedicalTerms + ", " +
			"KPI, ROI, OKR, 프로젝트, 마일스톤, 스프린트, 데드라인, 예산, 매출, 영업이익",
	},
}

// VocabularyHint returns the prompt that biases the STT engine toward the
// terms expected for a language and content type.
func VocabularyHint(lang task.Language, ct task.ContentType) string {
	byType, ok := vocabulary[lang]
	if !ok {
		byType = vocabulary[task.Korean]
	}
	if hint, ok := byType[ct]; ok {
		return hint
	}
	return byType[task.Conversation]
}
